package stats

import "github.com/DeweyHur/online-trpg/internal/domain"

var builtinTemplates = map[string]domain.StatsTemplate{
	"default": {
		Template: "default",
		Short:    []string{"HP", "MP"},
		Detailed: []string{"HP", "MP", "STR", "DEF", "AGI", "INT"},
	},
	"fantasy": {
		Template: "fantasy",
		Short:    []string{"HP", "MP", "AC"},
		Detailed: []string{"HP", "MP", "STR", "DEX", "CON", "INT", "WIS", "CHA", "AC", "Initiative"},
	},
	"scifi": {
		Template: "scifi",
		Short:    []string{"HP", "Energy"},
		Detailed: []string{"HP", "Energy", "Strength", "Agility", "Intelligence", "Tech", "Combat", "Social"},
	},
}

// TemplateNames lists the built-in templates.
func TemplateNames() []string {
	return []string{"default", "fantasy", "scifi", "custom"}
}
