package llm

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/cinelog/review-cli/internal/model"
)

// TaskRoute names the models that vote on one task and, optionally, the model
// whose vote wins ties.
type TaskRoute struct {
	Models        []string `yaml:"models"`
	PriorityModel string   `yaml:"priority_model,omitempty"`
}

// Routes is the per-task model routing configuration.
type Routes struct {
	Tasks map[model.TaskType]TaskRoute `yaml:"tasks"`
}

// DefaultRoutes returns the routing used when no models.yaml is supplied.
func DefaultRoutes() *Routes {
	return &Routes{
		Tasks: map[model.TaskType]TaskRoute{
			model.TaskClassifyPage: {
				Models:        []string{"claude-haiku-4-5-20251001", "gpt-4o-mini"},
				PriorityModel: "claude-haiku-4-5-20251001",
			},
			model.TaskCleanReview: {
				Models: []string{"gpt-4o-mini"},
			},
			model.TaskJudgeReview: {
				Models: []string{"claude-haiku-4-5-20251001"},
			},
			model.TaskExtractMovieTitle: {
				Models: []string{"gpt-4o-mini"},
			},
			model.TaskSentiment: {
				Models: []string{"claude-haiku-4-5-20251001"},
			},
		},
	}
}

// LoadRoutes reads model routing from a YAML file. The file has a top-level
// "routing" key:
//
//	routing:
//	  tasks:
//	    classify_page:
//	      models: [claude-haiku-4-5-20251001, gpt-4o-mini]
//	      priority_model: claude-haiku-4-5-20251001
func LoadRoutes(path string) (*Routes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "llm: read routes %s", path)
	}

	var wrapper struct {
		Routing Routes `yaml:"routing"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "llm: parse routes")
	}
	if len(wrapper.Routing.Tasks) == 0 {
		return nil, eris.Errorf("llm: routes file %s defines no tasks", path)
	}
	return &wrapper.Routing, nil
}

// For returns the route for a task, falling back to defaults for tasks the
// file does not mention.
func (r *Routes) For(task model.TaskType) TaskRoute {
	if route, ok := r.Tasks[task]; ok && len(route.Models) > 0 {
		return route
	}
	return DefaultRoutes().Tasks[task]
}

// Primary returns the first model configured for a task.
func (r *Routes) Primary(task model.TaskType) string {
	route := r.For(task)
	if len(route.Models) == 0 {
		return ""
	}
	return route.Models[0]
}
