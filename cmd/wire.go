package cmd

import (
	"context"
	"net/http"

	orchestratorx "github.com/tanpawarit/cdgi-bus-assistant/agent/agents/orchestrator"
	"github.com/tanpawarit/cdgi-bus-assistant/agent/dialogue"
	"github.com/tanpawarit/cdgi-bus-assistant/agent/prompt"
	"github.com/tanpawarit/cdgi-bus-assistant/agent/session"
	toolx "github.com/tanpawarit/cdgi-bus-assistant/agent/tool"
	"github.com/tanpawarit/cdgi-bus-assistant/channel/voice"
	"github.com/tanpawarit/cdgi-bus-assistant/channel/whatsapp"
	configx "github.com/tanpawarit/cdgi-bus-assistant/pkg/config"
	logx "github.com/tanpawarit/cdgi-bus-assistant/pkg/logger"
	openaix "github.com/tanpawarit/cdgi-bus-assistant/pkg/openai"
	twiliox "github.com/tanpawarit/cdgi-bus-assistant/pkg/twilio"
	"github.com/tanpawarit/cdgi-bus-assistant/route"
	"github.com/tanpawarit/cdgi-bus-assistant/server"
)

type serveOptions struct {
	probeModel bool
}

type serveApp struct {
	http    server.Config
	router  http.Handler
	closers []func() error
}

func (a *serveApp) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func wireServe(ctx context.Context, opts serveOptions) (app *serveApp, err error) {
	log := logx.FromContext(ctx)

	openaiCfg, err := configx.New[openaix.Config]("OPENAI")
	if err != nil {
		return nil, err
	}
	twilioCfg, err := configx.New[twiliox.Config]("TWILIO")
	if err != nil {
		return nil, err
	}
	routesCfg, err := configx.New[route.Config]("ROUTES")
	if err != nil {
		return nil, err
	}
	sessionCfg, err := configx.New[session.Config]("SESSION")
	if err != nil {
		return nil, err
	}
	httpCfg, err := configx.New[server.Config]("HTTP")
	if err != nil {
		return nil, err
	}

	chatModel, err := openaiCfg.New(ctx)
	if err != nil {
		return nil, err
	}
	if opts.probeModel {
		if err := openaix.Probe(ctx, openaix.NewClient(*openaiCfg), openaiCfg.Model); err != nil {
			log.Warn().Err(err).Msg("openai model probe failed")
		}
	}

	app = &serveApp{http: *httpCfg}
	defer func() {
		if err != nil {
			app.close()
		}
	}()

	directory := route.Open(ctx, *routesCfg)
	app.closers = append(app.closers, directory.Close)
	registry, err := toolx.BuildDefault(ctx, directory)
	if err != nil {
		return nil, err
	}
	engine, err := dialogue.New(ctx, chatModel, registry)
	if err != nil {
		return nil, err
	}

	store, err := session.Open(ctx, *sessionCfg)
	if err != nil {
		return nil, err
	}
	if c, ok := store.(interface{ Close() error }); ok {
		app.closers = append(app.closers, c.Close)
	}
	sessions, err := session.NewManager(store, prompt.SeedHistory)
	if err != nil {
		return nil, err
	}

	orchestrator, err := orchestratorx.New(engine, sessions, prompt.SeedHistory)
	if err != nil {
		return nil, err
	}

	messenger, err := twiliox.NewClient(*twilioCfg)
	if err != nil {
		return nil, err
	}

	voiceHandler, err := voice.NewHandler(orchestrator)
	if err != nil {
		return nil, err
	}
	whatsappHandler, err := whatsapp.NewHandler(orchestrator, messenger)
	if err != nil {
		return nil, err
	}

	app.router = server.NewRouter(voiceHandler, whatsappHandler)
	log.Info().
		Str("model", openaiCfg.Model).
		Bool("routes_available", directory.Available()).
		Str("session_backend", sessionCfg.Backend).
		Msg("busbot wired")
	return app, nil
}
