// Command simday runs one save and simulate cycle against the backend and
// prints the resulting view, either as the JSON page model or as the HTML
// result fragment.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/energylife/energylife/pkg/client"
	"github.com/energylife/energylife/pkg/controller"
	"github.com/energylife/energylife/pkg/form"
	"github.com/energylife/energylife/pkg/i18n"
	"github.com/energylife/energylife/pkg/log"
	"github.com/energylife/energylife/pkg/types"
	"github.com/energylife/energylife/pkg/view"
	"github.com/joho/godotenv"
	"github.com/levenlabs/go-lflag"
)

func main() {
	_ = godotenv.Load()

	c := client.Configured()
	formValues := lflag.String("form", "", "Form to submit before simulating, URL-encoded (e.g. residents=3&tariff_mode=tou)")
	langFlag := lflag.String("lang", string(i18n.Thai), "Display language (th or en)")
	mode := lflag.String("mode", types.ModeGame, "Front-end mode (game or real)")
	asJSON := lflag.Bool("json", false, "Print the page model as JSON instead of HTML")
	lflag.Configure()
	log.SyncLevel()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	lang, err := i18n.Parse(*langFlag)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "unsupported language", slog.Any("error", err))
		os.Exit(1)
	}
	values, err := url.ParseQuery(*formValues)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "invalid form", slog.Any("error", err))
		os.Exit(1)
	}
	ctx = client.WithLang(ctx, lang)

	// keep whatever session cookie the backend hands out between the calls
	jar, _ := cookiejar.New(nil)
	ctrl := controller.New(c.WithJar(jar), *mode, lang)

	if _, err := ctrl.Load(ctx); err != nil {
		fail(ctx, "failed to load state", err, lang)
	}
	st, err := ctrl.Simulate(ctx, form.Collect(values))
	if err != nil {
		fail(ctx, "failed to simulate", err, lang)
	}

	p := view.Build(view.Input{
		Lang:     lang,
		Mode:     ctrl.Mode(),
		Snapshot: st.Snapshot,
		Unsaved:  st.Dirty,
		Result:   st.Result,
		Shop:     st.Shop,
		Seq:      st.Seq,
	})
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(p); err != nil {
			fail(ctx, "failed to write page", err, lang)
		}
		return
	}
	renderer, err := view.NewRenderer()
	if err != nil {
		fail(ctx, "failed to load templates", err, lang)
	}
	if err := renderer.Fragment(os.Stdout, p); err != nil {
		fail(ctx, "failed to render", err, lang)
	}
}

func fail(ctx context.Context, msg string, err error, lang i18n.Lang) {
	log.Ctx(ctx).ErrorContext(ctx, msg, slog.String("message", controller.Message(err, lang)), slog.Any("error", err))
	os.Exit(1)
}
