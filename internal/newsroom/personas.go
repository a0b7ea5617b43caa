package newsroom

import "github.com/ashureev/newsroom/internal/domain"

// Personas returns the fixed editorial slate in display order. The
// coordinator derives its concurrency width and quorum threshold from the
// length of this slice, never from a literal count.
func Personas() []domain.Persona {
	return []domain.Persona{
		{
			ID:      "progressive",
			Name:    "The Progressive Tribune",
			Tagline: "Question Everything",
			Stance:  "Always question power structures, champion underdog perspectives, focus on social justice and inequality",
			Style:   "Provocative headlines with emotional appeal, focus on human impact and systemic issues",
			Tone:    "Passionate, activist, challenging",
		},
		{
			ID:      "conservative",
			Name:    "The Traditional Post",
			Tagline: "Trusted Since 1887",
			Stance:  "Preserve institutions, emphasize stability and order, skeptical of rapid change",
			Style:   "Measured tone, data-driven analysis, focus on economic impacts and traditional values",
			Tone:    "Authoritative, cautious, traditional",
		},
		{
			ID:      "tech",
			Name:    "The Digital Daily",
			Tagline: "Tomorrow's News Today",
			Stance:  "Everything is disruption, focus on innovation and future trends, relentlessly optimistic about technology",
			Style:   "Buzzword-heavy, forward-looking, focus on technological solutions and Silicon Valley perspective",
			Tone:    "Enthusiastic, futuristic, techno-optimist",
		},
	}
}
