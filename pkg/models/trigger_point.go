package models

// TriggerPointPrefix namespaces every trigger point identifier.
const TriggerPointPrefix = "pf/trigger/"

// Built-in trigger points. Hosts may register additional ones at
// startup through a TriggerPointCatalog.
const (
	TriggerRegistrationCreated = TriggerPointPrefix + "registration_created"
)

// TriggerPoint describes a named application event workflow rules can
// bind to.
type TriggerPoint struct {
	Hook string `json:"hook"`
	Name string `json:"name"`
}

// TriggerPointCatalog holds the trigger points rules may be bound to.
// Registration happens during startup; lookups are read-only afterward.
type TriggerPointCatalog struct {
	points map[string]TriggerPoint
	order  []string
}

// NewTriggerPointCatalog builds a catalog seeded with the built-in
// trigger points.
func NewTriggerPointCatalog() *TriggerPointCatalog {
	catalog := &TriggerPointCatalog{points: make(map[string]TriggerPoint)}
	catalog.Register(TriggerPoint{Hook: TriggerRegistrationCreated, Name: "Registration created"})

	return catalog
}

// Register adds or overwrites a trigger point by hook name.
func (c *TriggerPointCatalog) Register(point TriggerPoint) {
	if _, exists := c.points[point.Hook]; !exists {
		c.order = append(c.order, point.Hook)
	}

	c.points[point.Hook] = point
}

// Get looks a trigger point up by hook name.
func (c *TriggerPointCatalog) Get(hook string) (TriggerPoint, bool) {
	point, ok := c.points[hook]

	return point, ok
}

// All returns the registered trigger points in registration order.
func (c *TriggerPointCatalog) All() []TriggerPoint {
	all := make([]TriggerPoint, 0, len(c.order))
	for _, hook := range c.order {
		all = append(all, c.points[hook])
	}

	return all
}
