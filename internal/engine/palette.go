package engine

// Palette is the order in which players are given name colours.
var Palette = []string{"red", "blue", "green", "yellow", "purple", "pink", "indigo", "emerald"}

// NeutralColor is used for names that are not on the roster.
const NeutralColor = "gray"

// colorMap assigns colours by position in the de-duplicated name list, so a
// player's colour follows join order rather than member id.
type colorMap struct {
	colors map[string]string
}

func (c *colorMap) refresh(names []string) {
	c.colors = make(map[string]string, len(names))
	for i, name := range names {
		c.colors[name] = Palette[i%len(Palette)]
	}
}

func (c *colorMap) get(name string) string {
	if color, ok := c.colors[name]; ok {
		return color
	}
	return NeutralColor
}
