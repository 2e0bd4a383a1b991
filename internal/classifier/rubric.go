package classifier

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadpulse/internal/model"
)

// Rubric defines the grading criteria and reply guidance embedded into every
// classification prompt. Teams can ship their own rubric file to tune how
// aggressively comments are graded without touching code.
type Rubric struct {
	Persona         string   `yaml:"persona"`
	HotCriteria     string   `yaml:"hot_criteria"`
	WarmCriteria    string   `yaml:"warm_criteria"`
	ColdCriteria    string   `yaml:"cold_criteria"`
	ReplyGuidelines []string `yaml:"reply_guidelines"`
}

// DefaultRubric returns the built-in grading rubric.
func DefaultRubric() *Rubric {
	return &Rubric{
		Persona: "You are a lead classification expert and engagement specialist.",
		HotCriteria: "Strong buying intent, explicit questions about products/services, " +
			"mentions pain points, actively seeking solutions, asks for recommendations or pricing",
		WarmCriteria: "Shows interest or curiosity, asks general questions, engaged but " +
			"not urgent, might be interested but not ready to buy",
		ColdCriteria: "General comments, no clear buying intent, unrelated content, just " +
			"expressing opinions, no actionable interest",
		ReplyGuidelines: []string{
			"Professional and friendly tone",
			"1-2 sentences maximum",
			"Acknowledge their comment specifically",
			"For hot leads: Offer help, ask to connect, provide value",
			"For warm leads: Engage conversationally, offer resources",
			"For cold leads: Thank them, keep it brief and positive",
		},
	}
}

// LoadRubric reads a rubric from a YAML file. Empty fields fall back to the
// built-in rubric so a partial override file still produces a full prompt.
func LoadRubric(path string) (*Rubric, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "classifier: read rubric %s", path)
	}

	var wrapper struct {
		Rubric Rubric `yaml:"rubric"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "classifier: parse rubric")
	}

	r := &wrapper.Rubric
	def := DefaultRubric()
	if r.Persona == "" {
		r.Persona = def.Persona
	}
	if r.HotCriteria == "" {
		r.HotCriteria = def.HotCriteria
	}
	if r.WarmCriteria == "" {
		r.WarmCriteria = def.WarmCriteria
	}
	if r.ColdCriteria == "" {
		r.ColdCriteria = def.ColdCriteria
	}
	if len(r.ReplyGuidelines) == 0 {
		r.ReplyGuidelines = def.ReplyGuidelines
	}
	return r, nil
}

// buildPrompt renders the classification prompt for one batch. Each comment
// is numbered and tagged with its id so the model can echo ids back in the
// JSON array it returns.
func (r *Rubric) buildPrompt(batch []model.ClassificationRequest) string {
	var entries strings.Builder
	for i, req := range batch {
		fmt.Fprintf(&entries, "%d. [ID: %s] %q\n", i+1, req.ID, req.Text)
	}

	var guidelines strings.Builder
	for _, g := range r.ReplyGuidelines {
		guidelines.WriteString("- ")
		guidelines.WriteString(g)
		guidelines.WriteString("\n")
	}

	return fmt.Sprintf(`%s Analyze the following YouTube video comments and:
1. Classify each as a "hot", "warm", or "cold" lead based on buying intent
2. Generate a professional, engaging reply for each comment

Classification Criteria:
- **Hot Lead**: %s
- **Warm Lead**: %s
- **Cold Lead**: %s

Reply Guidelines:
%s
Return ONLY a valid JSON array with this exact structure:
[
  {
    "id": "comment_id_1",
    "leadType": "hot",
    "leadReason": "Brief reason explaining the classification",
    "reply": "Professional reply tailored to this comment"
  },
  {
    "id": "comment_id_2",
    "leadType": "warm",
    "leadReason": "Brief reason explaining the classification",
    "reply": "Professional reply tailored to this comment"
  }
]

Comments to classify:
%s
Return the JSON array now (no other text, just the JSON):`,
		r.Persona, r.HotCriteria, r.WarmCriteria, r.ColdCriteria,
		guidelines.String(), entries.String())
}
