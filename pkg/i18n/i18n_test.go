package i18n

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for in, want := range map[string]Lang{
		"th":    Thai,
		"TH":    Thai,
		"en":    English,
		"en-US": English,
		" en ":  English,
		"th_TH": Thai,
	} {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := Parse("fr")
	assert.Error(t, err)
}

func TestForFallsBackToThai(t *testing.T) {
	assert.Equal(t, For(Thai), For(Lang("xx")))
}

func TestCatalogsComplete(t *testing.T) {
	// every string in every catalog should be filled in
	for lang, m := range catalogs {
		checkStrings(t, string(lang), reflect.ValueOf(m))
	}
}

func checkStrings(t *testing.T, path string, v reflect.Value) {
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			checkStrings(t, path+"."+v.Type().Field(i).Name, v.Field(i))
		}
	case reflect.String:
		assert.NotEmpty(t, v.String(), path)
	}
}

func TestTariffName(t *testing.T) {
	m := For(English)
	assert.Equal(t, "TOU", m.TariffName("tou"))
	assert.Equal(t, "Normal rate", m.TariffName("non_tou"))
	assert.Equal(t, "Normal rate", m.TariffName(""))
	assert.Equal(t, "flat", m.TariffName("flat"))
}

func TestRoomTypeName(t *testing.T) {
	m := For(English)
	assert.Equal(t, "Bedroom", m.RoomTypeName("bedroom"))
	assert.Equal(t, "Parking", m.RoomTypeName("parking"))
	assert.Equal(t, "", m.RoomTypeName("attic"))
}
