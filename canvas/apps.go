package canvas

import (
	"sync"

	"github.com/R3E-Network/widget_layer/pkg/logger"
	"github.com/R3E-Network/widget_layer/platform/params"
	"github.com/R3E-Network/widget_layer/session"
)

// App is one live widget instance. Destroy must be idempotent.
type App interface {
	ID() string
	Destroy()
}

// AppContext is the scoped rendering context handed to a factory.
type AppContext struct {
	// ID is the app id within its canvas.
	ID string

	// CanvasID identifies the owning canvas.
	CanvasID string

	// ContainerID identifies the host container element.
	ContainerID string

	// Caption is the descriptor's optional title.
	Caption string

	// Session is the resolved page session, or nil when the canvas ran
	// without one.
	Session *session.Session

	// Config is the descriptor configuration after session/canvas
	// injection and override merging.
	Config params.Config

	Log logger.Logger
}

// Factory builds an App from its context.
type Factory func(AppContext) (App, error)

// Catalog maps component identifiers to their registered implementations.
// A widget bundle registers its factory here when it loads; the bootstrap
// pipeline polls Has during resource loading and resolves factories during
// instantiation.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Register registers a factory under a component identifier, replacing any
// previous registration.
func (c *Catalog) Register(component string, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[component] = f
}

// Lookup returns the factory registered under component.
func (c *Catalog) Lookup(component string) (Factory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.factories[component]
	return f, ok
}

// Has reports whether component has a registered implementation.
func (c *Catalog) Has(component string) bool {
	_, ok := c.Lookup(component)
	return ok
}
