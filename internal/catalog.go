package internal

import (
	"fmt"
	"os"
	"strings"

	"github.com/iksnae/workspace-chat/internal/composer"
	"gopkg.in/yaml.v3"
)

// AgentProfile is an agent that can be mentioned with "@handle"
type AgentProfile struct {
	Handle           string    `yaml:"handle"`
	Name             string    `yaml:"name"`
	Description      string    `yaml:"description"`
	Type             AgentType `yaml:"type"`
	Icon             IconKind  `yaml:"icon"`
	RequiresApproval bool      `yaml:"requires_approval"`
}

// CommandSpec is a "/" command
type CommandSpec struct {
	ID          string   `yaml:"id"`
	Label       string   `yaml:"label"`
	Description string   `yaml:"description"`
	Icon        IconKind `yaml:"icon"`
	Tool        string   `yaml:"tool,omitempty"` // tool invoked when a message starts with the label
}

// Catalog holds the agents and commands offered by the composer
type Catalog struct {
	Agents   []AgentProfile `yaml:"agents"`
	Commands []CommandSpec  `yaml:"commands"`
}

// DefaultCatalog returns the built-in agents and commands
func DefaultCatalog() *Catalog {
	return &Catalog{
		Agents: []AgentProfile{
			{Handle: "architect", Name: "Architect", Description: "Plans the target information architecture", Type: AgentMigration, Icon: IconArchitect, RequiresApproval: true},
			{Handle: "migration", Name: "Migration Agent", Description: "Moves pages and media to the new platform", Type: AgentMigration, Icon: IconMigration, RequiresApproval: true},
			{Handle: "qa", Name: "QA Agent", Description: "Runs visual and content regression checks", Type: AgentQA, Icon: IconQA},
			{Handle: "sitecore", Name: "Sitecore Agent", Description: "Creates templates and renderings in Sitecore", Type: AgentSitecore, Icon: IconSitecore, RequiresApproval: true},
			{Handle: "content", Name: "Content Agent", Description: "Rewrites and tags content", Type: AgentContent, Icon: IconContent},
		},
		Commands: []CommandSpec{
			{ID: "start-migration", Label: "Start Migration", Description: "Kick off a site migration", Icon: IconMigration, Tool: "migration_planner"},
			{ID: "analyze-site", Label: "Analyze Site", Description: "Crawl and inventory the source site", Icon: IconCommand, Tool: "site_crawler"},
			{ID: "run-qa", Label: "Run QA Checks", Description: "Visual and content regression checks", Icon: IconQA, Tool: "qa_runner"},
			{ID: "content-model", Label: "Generate Content Model", Description: "Derive templates from page structure", Icon: IconContent, Tool: "content_modeler"},
			{ID: "show-status", Label: "Show Status", Description: "Summarize running tasks", Icon: IconCommand},
		},
	}
}

// LoadCatalog reads a catalog YAML file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Source: "catalog", Key: path, Err: err}
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, &ParseError{Source: "catalog", Key: path, Err: err}
	}
	if err := c.Validate(); err != nil {
		return nil, &ParseError{Source: "catalog", Key: path, Err: err}
	}
	return &c, nil
}

// Validate checks that handles and labels are present and unique
func (c *Catalog) Validate() error {
	handles := map[string]bool{}
	for _, a := range c.Agents {
		h := strings.ToLower(a.Handle)
		if h == "" {
			return fmt.Errorf("agent %q has no handle", a.Name)
		}
		if handles[h] {
			return fmt.Errorf("duplicate agent handle %q", a.Handle)
		}
		handles[h] = true
	}
	labels := map[string]bool{}
	for _, cmd := range c.Commands {
		if cmd.Label == "" {
			return fmt.Errorf("command %q has no label", cmd.ID)
		}
		if labels[cmd.Label] {
			return fmt.Errorf("duplicate command label %q", cmd.Label)
		}
		labels[cmd.Label] = true
	}
	return nil
}

// Agent looks up an agent by handle
func (c *Catalog) Agent(handle string) (AgentProfile, bool) {
	for _, a := range c.Agents {
		if strings.EqualFold(a.Handle, handle) {
			return a, true
		}
	}
	return AgentProfile{}, false
}

// CommandFor returns the command whose label starts text, if any
func (c *Catalog) CommandFor(text string) (CommandSpec, bool) {
	for _, cmd := range c.Commands {
		if strings.HasPrefix(strings.ToLower(text), strings.ToLower(cmd.Label)) {
			return cmd, true
		}
	}
	return CommandSpec{}, false
}

// CommandCandidates converts commands to autocomplete candidates
func (c *Catalog) CommandCandidates() []composer.Candidate {
	out := make([]composer.Candidate, 0, len(c.Commands))
	for _, cmd := range c.Commands {
		out = append(out, composer.Candidate{
			ID:          cmd.ID,
			Label:       cmd.Label,
			Description: cmd.Description,
			Glyph:       cmd.Icon.Glyph(),
		})
	}
	return out
}

// MentionCandidates converts agents to autocomplete candidates
func (c *Catalog) MentionCandidates() []composer.Candidate {
	out := make([]composer.Candidate, 0, len(c.Agents))
	for _, a := range c.Agents {
		out = append(out, composer.Candidate{
			ID:          a.Handle,
			Label:       a.Name,
			Handle:      a.Handle,
			Description: a.Description,
			Glyph:       a.Icon.Glyph(),
		})
	}
	return out
}
