// Package canvas implements the multi-widget container orchestrator: a
// five-stage bootstrap pipeline that resolves configuration, brings up the
// cross-context messaging channel, resolves the page session, loads widget
// resource bundles and instantiates app implementations into a host
// container.
package canvas

import (
	"context"
	"fmt"
	"sync"

	"github.com/R3E-Network/widget_layer/internal/metrics"
	"github.com/R3E-Network/widget_layer/pkg/logger"
	"github.com/R3E-Network/widget_layer/platform/bus"
	"github.com/R3E-Network/widget_layer/platform/loader"
	"github.com/R3E-Network/widget_layer/platform/params"
	"github.com/R3E-Network/widget_layer/session"
)

// Stage is a pipeline state. Error is terminal and reachable from any
// non-terminal stage; AppsInstantiated is the terminal success.
type Stage string

const (
	StageUnconfigured     Stage = "unconfigured"
	StageConfigResolved   Stage = "config_resolved"
	StageMessagingReady   Stage = "messaging_ready"
	StageSessionReady     Stage = "session_ready"
	StageResourcesLoaded  Stage = "resources_loaded"
	StageAppsInstantiated Stage = "apps_instantiated"
	StageError            Stage = "error"
)

// Container attribute names the pipeline reads.
const (
	AttrCanvasID = "data-canvas-id"
	AttrAppKey   = "data-appkey"
)

// Container is the host element a canvas bootstraps into. The marker guards
// against double initialization; teardown clears it, permitting
// re-bootstrap.
type Container interface {
	ID() string
	Attr(name string) string
	Marked() bool
	SetMarked(marked bool)
}

// ConfigSource retrieves canvas configuration documents by canvas id.
type ConfigSource interface {
	Canvas(ctx context.Context, canvasID string) (*Document, error)
}

// Messenger brings up the shared cross-context messaging channel. Start
// must be idempotent; the channel may already be up elsewhere on the page.
type Messenger interface {
	Start(ctx context.Context) error
	ChannelID() string
}

// Options configure one canvas.
type Options struct {
	// CanvasID and AppKey supplement the container attributes; attributes
	// win when both are present.
	CanvasID string
	AppKey   string

	// Debug selects the dev half of split script references.
	Debug bool

	// Document supplies the configuration directly, skipping the storage
	// request. Descriptors then need explicit ids.
	Document *Document

	// Overrides is the per-app configuration override map, keyed by app
	// id, deep-merged over each descriptor's config (override wins).
	Overrides map[string]params.Config

	// Session supplies an externally resolved session, skipping session
	// resolution.
	Session *session.Session

	// RenderErrors flags pipeline-fatal errors as render-worthy in the
	// published error event.
	RenderErrors bool
}

// Deps are the collaborators a canvas consumes.
type Deps struct {
	Config    ConfigSource
	Messenger Messenger
	Session   *session.Session
	Loader    *loader.Loader
	Apps      *Catalog
	Bus       *bus.Bus
	Log       logger.Logger
	Metrics   *metrics.Collector
}

// plannedApp is a descriptor that survived validation, with its resolved id
// and script URL.
type plannedApp struct {
	desc   Descriptor
	id     string
	url    string
	failed bool
}

// Canvas orchestrates one container.
type Canvas struct {
	mu sync.Mutex

	container Container
	opts      Options
	deps      Deps
	log       logger.Logger

	stage    Stage
	canvasID string
	appKey   string
	manual   bool
	doc      *Document
	sess     *session.Session
	planned  []plannedApp
	registry *Registry
}

// New creates a Canvas over container. Bootstrap performs all work.
func New(container Container, opts Options, deps Deps) *Canvas {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Canvas{
		container: container,
		opts:      opts,
		deps:      deps,
		log:       log,
		stage:     StageUnconfigured,
		registry:  NewRegistry(),
	}
}

// Stage returns the current pipeline stage.
func (c *Canvas) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// Registry returns the app instance registry of this canvas.
func (c *Canvas) Registry() *Registry {
	return c.registry
}

// Session returns the session the canvas resolved or was given, nil when it
// ran without one.
func (c *Canvas) Session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// Bootstrap runs the pipeline to completion. Failures in the first three
// stages are fatal: one error event, no instances, pipeline halted.
// Per-descriptor failures in resource loading and instantiation are
// isolated and never abort siblings. There are no retries; after Destroy
// the caller may bootstrap a fresh canvas on the same container.
func (c *Canvas) Bootstrap(ctx context.Context) error {
	if c.container.Marked() {
		err := newError(CodeAlreadyInitialized, "container already initialized")
		c.reportFatal(err)
		return err
	}
	c.container.SetMarked(true)

	stages := []struct {
		next Stage
		run  func(context.Context) error
	}{
		{StageConfigResolved, c.resolveConfig},
		{StageMessagingReady, c.initMessaging},
		{StageSessionReady, c.resolveSession},
		{StageResourcesLoaded, c.loadResources},
		{StageAppsInstantiated, c.instantiate},
	}

	for _, stage := range stages {
		if err := stage.run(ctx); err != nil {
			c.setStage(StageError)
			cerr := asCanvasError(err)
			c.reportFatal(cerr)
			return cerr
		}
		c.setStage(stage.next)
	}

	if c.deps.Metrics != nil {
		c.deps.Metrics.Bootstrap("ok")
	}
	c.log.Info("canvas: bootstrap complete", "canvas", c.canvasID, "apps", c.registry.Len())
	return nil
}

// Destroy tears down every registered app instance, clears the registry and
// clears the container marker so the container may be bootstrapped again.
func (c *Canvas) Destroy() {
	c.registry.Teardown()
	c.container.SetMarked(false)
}

// Stage 1: configuration resolution.
func (c *Canvas) resolveConfig(ctx context.Context) error {
	c.canvasID = firstNonEmpty(c.container.Attr(AttrCanvasID), c.opts.CanvasID)
	c.appKey = firstNonEmpty(c.container.Attr(AttrAppKey), c.opts.AppKey)

	if c.opts.Document != nil {
		c.manual = true
		c.doc = c.opts.Document
		if len(c.doc.Apps) == 0 {
			return newError(CodeInvalidConfig, "configuration holds no app descriptors")
		}
		return nil
	}

	// Both identifiers must resolve before any network access.
	if c.canvasID == "" || c.appKey == "" {
		return newError(CodeInvalidCanvasConfig, "canvas id and app key are required")
	}

	doc, err := c.deps.Config.Canvas(ctx, c.canvasID)
	if err != nil {
		return wrapError(CodeUnableToRetrieveAppConfig, "retrieve canvas configuration", err)
	}
	if doc == nil || len(doc.Apps) == 0 {
		return newError(CodeInvalidConfig, "configuration holds no app descriptors")
	}
	c.doc = doc
	return nil
}

// Stage 2: messaging channel init. Idempotent when the channel is already
// up elsewhere on the page.
func (c *Canvas) initMessaging(ctx context.Context) error {
	if c.deps.Messenger == nil {
		return nil
	}
	if err := c.deps.Messenger.Start(ctx); err != nil {
		return wrapError(CodeNetworkError, "initialize messaging channel", err)
	}
	return nil
}

// Stage 3: session resolution. Skipped when a session was supplied
// externally or no app key is configured.
func (c *Canvas) resolveSession(ctx context.Context) error {
	if c.opts.Session != nil {
		c.mu.Lock()
		c.sess = c.opts.Session
		c.mu.Unlock()
		return nil
	}
	if c.appKey == "" || c.deps.Session == nil {
		return nil
	}

	done := make(chan error, 1)
	c.deps.Session.Resolve(func(_ session.Data, err error) {
		done <- err
	})

	select {
	case <-ctx.Done():
		return wrapError(CodeNetworkError, "session resolution aborted", ctx.Err())
	case err := <-done:
		if err != nil {
			return wrapError(CodeNetworkError, "session resolution failed", err)
		}
	}

	c.mu.Lock()
	c.sess = c.deps.Session
	c.mu.Unlock()
	return nil
}

// Stage 4: resource loading. Descriptor violations and download failures
// are isolated: the descriptor is logged and skipped, siblings proceed.
func (c *Canvas) loadResources(ctx context.Context) error {
	for i, desc := range c.doc.Apps {
		p := plannedApp{
			desc: desc,
			id:   desc.EffectiveID(i, c.manual),
			url:  desc.Script.Resolve(c.opts.Debug),
		}
		switch {
		case desc.Component == "":
			c.reportPartial(p.id, newError(CodePartialResource, "descriptor has no component identifier"))
			continue
		case p.url == "":
			c.reportPartial(p.id, newError(CodePartialResource, "descriptor has no resolvable script"))
			continue
		case p.id == "":
			c.reportPartial(p.id, newError(CodePartialResource, "descriptor has no derivable id"))
			continue
		}
		c.planned = append(c.planned, p)
	}

	if c.deps.Loader == nil || len(c.planned) == 0 {
		return nil
	}

	entries := make([]loader.Entry, len(c.planned))
	for i, p := range c.planned {
		component := p.desc.Component
		entries[i] = loader.Entry{
			URL: p.url,
			Ready: func() bool {
				return c.deps.Apps != nil && c.deps.Apps.Has(component)
			},
		}
	}

	results := c.deps.Loader.Load(ctx, entries)
	for i, err := range results {
		if err != nil {
			c.planned[i].failed = true
			c.reportPartial(c.planned[i].id, wrapError(CodePartialResource, "script load failed", err))
		}
	}
	return nil
}

// Stage 5: instantiation, in original descriptor order. A missing
// implementation or a failing factory skips that descriptor only.
func (c *Canvas) instantiate(context.Context) error {
	for _, p := range c.planned {
		if p.failed {
			continue
		}

		factory, ok := c.deps.Apps.Lookup(p.desc.Component)
		if !ok {
			c.reportPartial(p.id, newError(CodeNoSuitableAppClass,
				fmt.Sprintf("no implementation registered for %q", p.desc.Component)))
			continue
		}

		cfg := params.Merge(p.desc.Config, nil)
		cfg.Set("canvasID", c.canvasID)
		cfg.Set("session", c.sess)
		if override, ok := c.opts.Overrides[p.id]; ok {
			cfg = params.Merge(cfg, override)
		}

		app, err := factory(AppContext{
			ID:          p.id,
			CanvasID:    c.canvasID,
			ContainerID: c.container.ID(),
			Caption:     p.desc.Caption,
			Session:     c.sess,
			Config:      cfg,
			Log:         c.log,
		})
		if err != nil {
			c.reportPartial(p.id, wrapError(CodePartialResource, "app construction failed", err))
			continue
		}
		c.registry.Add(p.id, app)
	}
	return nil
}

func (c *Canvas) setStage(s Stage) {
	c.mu.Lock()
	c.stage = s
	c.mu.Unlock()
}

// reportFatal publishes a pipeline-terminal error once.
func (c *Canvas) reportFatal(err *Error) {
	err.Render = c.opts.RenderErrors
	c.log.Error("canvas: bootstrap failed", "canvas", c.canvasID, "code", err.Code, "error", err)
	if c.deps.Metrics != nil {
		c.deps.Metrics.Bootstrap(err.Code)
	}
	if c.deps.Bus != nil {
		c.deps.Bus.Publish(bus.CanvasErrorTopic(c.canvasID), c.canvasID, err)
	}
}

// reportPartial surfaces an isolated per-descriptor failure.
func (c *Canvas) reportPartial(appID string, err *Error) {
	c.log.Warn("canvas: descriptor skipped", "canvas", c.canvasID, "app", appID, "code", err.Code, "error", err)
	if c.deps.Metrics != nil {
		c.deps.Metrics.DescriptorFailure(err.Code)
	}
	if c.deps.Bus != nil {
		c.deps.Bus.Publish(bus.CanvasErrorTopic(c.canvasID), c.canvasID, err)
	}
}

func asCanvasError(err error) *Error {
	if ce, ok := err.(*Error); ok {
		return ce
	}
	return wrapError(CodeNetworkError, "bootstrap failed", err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
