package types

import "slices"

// CatalogAppliance is an appliance the player can configure, with the
// settings a new house starts with.
type CatalogAppliance struct {
	Key      string          `json:"key"`
	Name     string          `json:"name"`
	Icon     string          `json:"icon"`
	Defaults ApplianceConfig `json:"defaults"`
}

// Kind returns the config variant of the appliance.
func (a CatalogAppliance) Kind() string {
	return ApplianceKind(a.Key)
}

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }
func boolp(v bool) *bool     { return &v }
func strp(v string) *string  { return &v }

// Appliances is the built-in appliance catalog in display order.
var Appliances = []CatalogAppliance{
	{Key: "ac", Name: "แอร์", Icon: "❄️", Defaults: ApplianceConfig{
		Enabled: boolp(true), BTU: f64(12000), SetTemp: f64(26), Hours: f64(6),
		Inverter: boolp(true), StartHour: intp(20), EndHour: intp(2),
	}},
	{Key: "lights", Name: "ไฟ", Icon: "💡", Defaults: ApplianceConfig{
		Enabled: boolp(true), Mode: strp("LED"), Watts: f64(30), Hours: f64(5),
	}},
	{Key: "tv", Name: "ทีวี", Icon: "📺", Defaults: ApplianceConfig{
		Enabled: boolp(true), Watts: f64(120), Hours: f64(3),
	}},
	{Key: "fridge", Name: "ตู้เย็น", Icon: "🧊", Defaults: ApplianceConfig{
		Enabled: boolp(true), KWhPerDay: f64(1.2),
	}},
	{Key: "water_heater", Name: "เครื่องทำน้ำอุ่น", Icon: "🚿", Defaults: ApplianceConfig{
		Watts: f64(3500), Hours: f64(0.3),
	}},
	{Key: "washer", Name: "เครื่องซักผ้า", Icon: "🧺", Defaults: ApplianceConfig{
		Watts: f64(500), Hours: f64(0.5),
	}},
	{Key: "microwave", Name: "ไมโครเวฟ", Icon: "🍳", Defaults: ApplianceConfig{
		Watts: f64(1200), Hours: f64(0.1),
	}},
	{Key: "computer", Name: "คอมพิวเตอร์", Icon: "💻", Defaults: ApplianceConfig{
		Watts: f64(200), Hours: f64(2),
	}},
	{Key: "standby", Name: "ไฟสแตนด์บาย", Icon: "🔌", Defaults: ApplianceConfig{
		Enabled: boolp(true), Watts: f64(20), Hours: f64(24),
	}},
}

// LookupAppliance returns the catalog entry for key.
func LookupAppliance(key string) (CatalogAppliance, bool) {
	i := slices.IndexFunc(Appliances, func(a CatalogAppliance) bool { return a.Key == key })
	if i < 0 {
		return CatalogAppliance{}, false
	}
	return Appliances[i], true
}

// Shop item categories.
const (
	CategoryFurniture = "furniture"
	CategoryAvatar    = "avatar"
	CategoryEnergy    = "energy"
	CategoryPet       = "pet"
	CategoryProfile   = "profile"
)

// ShopItem is something that can be bought with points.
type ShopItem struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Cost     int    `json:"cost"`
	Category string `json:"category"`
}

// ShopResponse is the body of GET /api/shop.
type ShopResponse struct {
	Items []ShopItem `json:"items"`
}

// DefaultShopItems is shown when the backend's shop listing isn't available.
var DefaultShopItems = []ShopItem{
	{Key: "sofa", Name: "โซฟา Eco", Icon: "🛋️", Cost: 120, Category: CategoryFurniture},
	{Key: "plant", Name: "ต้นไม้เขียว", Icon: "🌿", Cost: 80, Category: CategoryFurniture},
	{Key: "painting", Name: "รูปพลังงาน", Icon: "🖼️", Cost: 60, Category: CategoryFurniture},
	{Key: "bed", Name: "เตียงนุ่ม", Icon: "🛏️", Cost: 150, Category: CategoryFurniture},
	{Key: "eco_hat", Name: "หมวกโซลาร์", Icon: "🧢", Cost: 90, Category: CategoryAvatar},
	{Key: "eco_shirt", Name: "เสื้อ ECO HERO", Icon: "👕", Cost: 110, Category: CategoryAvatar},
	{Key: "door_stopper", Name: "ที่ปิดช่องประตู", Icon: "🚪", Cost: 120, Category: CategoryEnergy},
	{Key: "uv_film", Name: "ฟิล์มกัน UV", Icon: "🪟", Cost: 250, Category: CategoryEnergy},
	{Key: "thermal_curtain", Name: "ม่านกันความร้อน", Icon: "🧵", Cost: 200, Category: CategoryEnergy},
	{Key: "led_pack", Name: "ชุดหลอด LED", Icon: "💡", Cost: 100, Category: CategoryEnergy},
	{Key: "smart_strip", Name: "ปลั๊กพ่วงอัจฉริยะ", Icon: "🔌", Cost: 220, Category: CategoryEnergy},
	{Key: "ac_clean", Name: "ล้างแอร์/ล้างฟิลเตอร์", Icon: "🧼", Cost: 150, Category: CategoryEnergy},
	{Key: "pet_food_basic", Name: "อาหารสัตว์ (Basic)", Icon: "🥣", Cost: 60, Category: CategoryPet},
	{Key: "pet_food_premium", Name: "อาหารสัตว์ (Premium)", Icon: "🍖", Cost: 140, Category: CategoryPet},
	{Key: "name_change_ticket", Name: "ตั๋วเปลี่ยนชื่อ", Icon: "🎟️", Cost: 180, Category: CategoryProfile},
}

// LookupShopItem finds key in items.
func LookupShopItem(items []ShopItem, key string) (ShopItem, bool) {
	i := slices.IndexFunc(items, func(it ShopItem) bool { return it.Key == key })
	if i < 0 {
		return ShopItem{}, false
	}
	return items[i], true
}

// HouseLevel is a tier of the house that is unlocked with points.
type HouseLevel struct {
	Level      int    `json:"level"`
	Name       string `json:"name"`
	NeedPoints int    `json:"need_points"`
	Badge      string `json:"badge"`
}

// HouseLevels is ordered by Level ascending.
var HouseLevels = []HouseLevel{
	{Level: 1, Name: "บ้านเริ่มต้น", NeedPoints: 0, Badge: "🏚️"},
	{Level: 2, Name: "บ้านพออยู่", NeedPoints: 200, Badge: "🏠"},
	{Level: 3, Name: "บ้านประหยัด", NeedPoints: 450, Badge: "🏡"},
	{Level: 4, Name: "บ้านใส่ใจพลังงาน", NeedPoints: 750, Badge: "🏘️"},
	{Level: 5, Name: "บ้าน Eco", NeedPoints: 1100, Badge: "🌱"},
	{Level: 6, Name: "Smart Home", NeedPoints: 1500, Badge: "🤖"},
	{Level: 7, Name: "Green Home", NeedPoints: 1950, Badge: "🌳"},
	{Level: 8, Name: "Advanced Energy", NeedPoints: 2450, Badge: "⚡"},
	{Level: 9, Name: "EV Lifestyle", NeedPoints: 3000, Badge: "🚗"},
	{Level: 10, Name: "Energy Master", NeedPoints: 3600, Badge: "👑"},
}

// LevelForPoints returns the highest level whose requirement is met.
func LevelForPoints(points int) HouseLevel {
	lvl := HouseLevels[0]
	for _, l := range HouseLevels {
		if points >= l.NeedPoints {
			lvl = l
		}
	}
	return lvl
}

// LookupLevel returns the house level entry for level, clamped to the table.
func LookupLevel(level int) HouseLevel {
	if level <= HouseLevels[0].Level {
		return HouseLevels[0]
	}
	for _, l := range HouseLevels {
		if l.Level == level {
			return l
		}
	}
	return HouseLevels[len(HouseLevels)-1]
}

// DefaultSnapshot is what a brand-new player starts with. It is used when
// rendering before the backend state has been loaded.
func DefaultSnapshot() Snapshot {
	apps := make(map[string]ApplianceConfig, len(Appliances))
	for _, a := range Appliances {
		apps[a.Key] = a.Defaults
	}
	return Snapshot{
		Profile: Profile{
			PlayerType: "family",
			HouseType:  "condo",
			HouseSize:  "medium",
			Residents:  3,
		},
		State: SimulationState{
			TariffMode: TariffNonTOU,
			SolarMode:  "manual",
			Appliances: apps,
			EV: EvConfig{
				BatteryKWh:      60,
				ChargerKW:       7.4,
				SOCFrom:         30,
				SOCTo:           80,
				ChargeStartHour: 22,
			},
			DayCounter: 1,
		},
		HouseLevel: 1,
	}
}
