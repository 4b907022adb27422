// Package catalog holds the static per-game template list the API
// exposes at GET /servers/catalog. Template content is opaque to the
// rest of the core: it is just a named (image, port, env,
// volumes) tuple a client can use to prefill a server-create request.
package catalog

import "strings"

// Template is an opaque starting point for creating a Server.
type Template struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	GameType string            `json:"game_type"`
	Image    string            `json:"image"`
	Port     uint16            `json:"port"`
	Env      map[string]string `json:"env,omitempty"`
	Volumes  map[string]string `json:"volumes,omitempty"`
}

// Default is the built-in template set. Real deployments are expected to
// extend this from their own content pipeline; the core only needs the
// tuple shape.
var Default = []Template{
	{
		ID:       "minecraft-java",
		Name:     "Minecraft (Java)",
		GameType: "minecraft",
		Image:    "itzg/minecraft-server:latest",
		Port:     25565,
		Env:      map[string]string{"EULA": "TRUE", "MEMORY": "${GAME_MEMORY}"},
		Volumes:  map[string]string{"/data/minecraft": "/data"},
	},
	{
		ID:       "valheim",
		Name:     "Valheim",
		GameType: "valheim",
		Image:    "lloesche/valheim-server",
		Port:     2456,
		Env:      map[string]string{"SERVER_NAME": "${SERVER_NAME}"},
		Volumes:  map[string]string{"/data/valheim": "/config"},
	},
	{
		ID:       "terraria",
		Name:     "Terraria",
		GameType: "terraria",
		Image:    "ryshe/terraria:latest",
		Port:     7777,
		Volumes:  map[string]string{"/data/terraria": "/root/.local/share/Terraria"},
	},
}

// Search filters Default by a case-insensitive substring match on Name,
// returning the full list when q is empty.
func Search(q string) []Template {
	if q == "" {
		return Default
	}
	q = strings.ToLower(q)
	out := make([]Template, 0, len(Default))
	for _, t := range Default {
		if strings.Contains(strings.ToLower(t.Name), q) {
			out = append(out, t)
		}
	}
	return out
}
