package prompt

import "sort"

type persona struct {
	Traits      string
	Perspective string
}

const defaultThinker = "Auto"

var personas = map[string]persona{
	"Kurzweil":   {"Exponential thinking, singularity, technological optimism, radical life extension", "Focus on exponential growth and technological breakthroughs"},
	"Harari":     {"Historical patterns, Homo Deus, dataism, critical social analysis", "Historical framing with a critical eye on social consequences"},
	"Bostrom":    {"Existential risk, superintelligence, precautionary principle, philosophical depth", "Philosophically grounded risk analysis and caution"},
	"Hassabis":   {"AI breakthroughs, neuroscience, practical applications, the DeepMind view", "Scientifically grounded AI development with a practical focus"},
	"Kelly":      {"The technium, inevitability, co-evolution of people and technology", "Technology as an evolutionary process of co-evolution"},
	"Tegmark":    {"Physics meets AI, Life 3.0, mathematical precision", "Mathematical and physical foundations of AI development"},
	"Zuboff":     {"Surveillance capitalism, data power, social warning", "Critical analysis of data power and surveillance structures"},
	"Lanier":     {"VR pioneer, tech criticism, humanism, digital dignity", "Humanist technology criticism focused on digital dignity"},
	"Musk":       {"Mars vision, Neuralink, radical solutions, appetite for risk", "Visionary and radical approaches to big challenges"},
	"Altman":     {"AGI focus, startup mentality, democratised AI", "Entrepreneurial AGI development with a sense of social responsibility"},
	"LeCun":      {"Scientific rigour, open source, a European perspective", "Rigorous and open AI research"},
	"Wolfram":    {"Computational universe, complexity, a new kind of science", "Computational thinking and new scientific paradigms"},
	"Thiel":      {"Contrarian positions, monopoly thinking, the stagnation thesis", "Contrarian thinking and critical market analysis"},
	"Andreessen": {"Software is eating the world, techno-optimism, the VC view", "An investor's view on technological disruption"},
	"Chomsky":    {"Linguistic depth, systemic critique, the cognitive revolution", "Linguistic and cognitive foundations with systemic critique"},
	"Pinker":     {"Enlightenment optimism, data-driven, belief in progress", "Data-based optimism and Enlightenment thinking"},
	"Taleb":      {"Black swans, antifragility, scepticism towards forecasts", "Robustness against unpredictable events"},
	"Gladwell":   {"Tipping points, storytelling, unexpected connections", "Narrative links between unexpected patterns"},
	"Mix":        {"Synthesis of two or three perspectives", "Combining schools of thought for a balanced analysis"},
	"Auto":       {"Adapts to the topic", "Topic-specific choice of perspective"},
}

// lookupPersona falls back to Auto for unknown thinkers.
func lookupPersona(name string) (string, persona) {
	if p, ok := personas[name]; ok {
		return name, p
	}
	return defaultThinker, personas[defaultThinker]
}

// Thinkers lists the known persona names, sorted.
func Thinkers() []string {
	names := make([]string, 0, len(personas))
	for name := range personas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
