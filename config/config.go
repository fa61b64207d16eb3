// Package config resolves the effective conversation settings from a
// hierarchy of layers: built-in defaults, the global ~/.parley config,
// PARLEY_* environment variables, the project .parley config, an optional
// named preset, and an optional explicit config file. Later layers override
// earlier ones field by field; a field a layer leaves out never clears a
// value set by a lower layer.
package config

// MCPServer declares an MCP tool server the conversation should have
// available. Servers are declared and forwarded, never executed by parley
// itself.
type MCPServer struct {
	Name    string   `yaml:"name" json:"name"`
	Command string   `yaml:"command" json:"command"`
	Args    []string `yaml:"args,omitempty" json:"args,omitempty"`
}

// Settings is the fully resolved conversation configuration. It is immutable
// once a session has been created with it; the session file keeps a snapshot.
type Settings struct {
	Provider      string      `json:"provider" yaml:"provider"`
	Model         string      `json:"model" yaml:"model"`
	ServerAddress string      `json:"server_address,omitempty" yaml:"server_address,omitempty"`
	Temperature   *float64    `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens     int         `json:"max_tokens" yaml:"max_tokens"`
	SystemPrompt  string      `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	Title         string      `json:"title" yaml:"title"`
	MCPServers    []MCPServer `json:"mcp_servers,omitempty" yaml:"mcp_servers,omitempty"`
}

// Patch is one configuration layer as read from disk or the environment.
// Every field is optional; nil means "this layer does not speak to that
// field". MCPServers is list-valued and replaces the whole list when
// present.
type Patch struct {
	Provider      *string     `yaml:"provider"`
	Model         *string     `yaml:"model"`
	ServerAddress *string     `yaml:"server_address"`
	Temperature   *float64    `yaml:"temperature"`
	MaxTokens     *int        `yaml:"max_tokens"`
	SystemPrompt  *string     `yaml:"system_prompt"`
	Title         *string     `yaml:"title"`
	MCPServers    []MCPServer `yaml:"mcp_servers"`
}

func (p Patch) apply(s *Settings) {
	if p.Provider != nil {
		s.Provider = *p.Provider
	}
	if p.Model != nil {
		s.Model = *p.Model
	}
	if p.ServerAddress != nil {
		s.ServerAddress = *p.ServerAddress
	}
	if p.Temperature != nil {
		t := *p.Temperature
		s.Temperature = &t
	}
	if p.MaxTokens != nil {
		s.MaxTokens = *p.MaxTokens
	}
	if p.SystemPrompt != nil {
		s.SystemPrompt = *p.SystemPrompt
	}
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.MCPServers != nil {
		s.MCPServers = append([]MCPServer(nil), p.MCPServers...)
	}
}

// Defaults returns the built-in settings, the lowest layer of the hierarchy.
func Defaults() Settings {
	return Settings{
		Provider:  "google",
		Model:     "gemini-2.5-flash",
		MaxTokens: 65535,
		Title:     "CLI Chat",
	}
}
