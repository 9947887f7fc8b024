package feature

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	gherkin "github.com/cucumber/gherkin/go/v26"
	messages "github.com/cucumber/messages/go/v21"

	"github.com/pengelbrecht/tally/internal/steps"
)

// locatedError matches the "(line:column): message" form gherkin uses for
// each parse error.
var locatedError = regexp.MustCompile(`\((\d+):(\d+)\): (.*)`)

// wrapError converts a gherkin parse error into a ParseError. When several
// errors are reported, the first one is kept.
func wrapError(path string, err error) error {
	m := locatedError.FindStringSubmatch(err.Error())
	if m == nil {
		return &ParseError{Path: path, Msg: err.Error()}
	}
	line, _ := strconv.Atoi(m[1])
	return &ParseError{Path: path, Line: line, Msg: m[3]}
}

// scenarioNode is what the compiled pickles need to know about the AST
// scenario they came from.
type scenarioNode struct {
	name string
	line int
}

type stepNode struct {
	keyword string
	line    int
}

// index maps AST node IDs to their source positions.
type index struct {
	path      string
	scenarios map[string]scenarioNode
	steps     map[string]stepNode
	rows      map[string]int
}

func newIndex(path string) *index {
	return &index{
		path:      path,
		scenarios: make(map[string]scenarioNode),
		steps:     make(map[string]stepNode),
		rows:      make(map[string]int),
	}
}

func (ix *index) addSteps(list []*messages.Step) error {
	for _, st := range list {
		line := int(st.Location.Line)
		if st.DataTable != nil || st.DocString != nil {
			return &ParseError{Path: ix.path, Line: line, Msg: "step arguments (tables, doc strings) are not supported"}
		}
		ix.steps[st.Id] = stepNode{keyword: strings.TrimSpace(st.Keyword), line: line}
	}
	return nil
}

func (ix *index) addScenario(sc *messages.Scenario) error {
	ix.scenarios[sc.Id] = scenarioNode{name: sc.Name, line: int(sc.Location.Line)}
	if err := ix.addSteps(sc.Steps); err != nil {
		return err
	}

	rows := 0
	for _, ex := range sc.Examples {
		for _, row := range ex.TableBody {
			ix.rows[row.Id] = int(row.Location.Line)
			rows++
		}
	}
	if rows == 0 && (len(sc.Examples) > 0 || isOutline(sc.Keyword)) {
		return &ParseError{Path: ix.path, Line: int(sc.Location.Line), Msg: fmt.Sprintf("scenario outline %q has no examples", sc.Name)}
	}
	return nil
}

func (ix *index) addBackground(bg *messages.Background) error {
	return ix.addSteps(bg.Steps)
}

func isOutline(keyword string) bool {
	return keyword == "Scenario Outline" || keyword == "Scenario Template"
}

// build maps a parsed gherkin document onto a Feature.
func build(path string, doc *messages.GherkinDocument, newID func() string) (*Feature, error) {
	gf := doc.Feature
	if gf == nil {
		return nil, &ParseError{Path: path, Msg: "no Feature: declaration"}
	}

	ix := newIndex(path)
	f := &Feature{
		Path:        path,
		Name:        gf.Name,
		Description: trimDescription(gf.Description),
		Tags:        tagNames(gf.Tags),
		Line:        int(gf.Location.Line),
	}

	for _, child := range gf.Children {
		switch {
		case child.Background != nil:
			if err := ix.addBackground(child.Background); err != nil {
				return nil, err
			}
			f.Background = ix.resolve(child.Background.Steps)
		case child.Scenario != nil:
			if err := ix.addScenario(child.Scenario); err != nil {
				return nil, err
			}
		case child.Rule != nil:
			for _, rc := range child.Rule.Children {
				var err error
				switch {
				case rc.Background != nil:
					err = ix.addBackground(rc.Background)
				case rc.Scenario != nil:
					err = ix.addScenario(rc.Scenario)
				}
				if err != nil {
					return nil, err
				}
			}
		}
	}

	examples := make(map[string]int)
	for _, pk := range gherkin.Pickles(*doc, path, newID) {
		node := ix.scenarios[pk.AstNodeIds[0]]
		s := Scenario{
			Name: pk.Name,
			Tags: pickleTags(pk.Tags),
			Line: node.line,
		}
		if len(pk.AstNodeIds) > 1 {
			examples[pk.AstNodeIds[0]]++
			s.Outline = node.name
			s.Example = examples[pk.AstNodeIds[0]]
			s.Name = pk.Name + " (example " + strconv.Itoa(s.Example) + ")"
			s.Line = ix.rows[pk.AstNodeIds[1]]
		}

		var k kinds
		for _, ps := range pk.Steps {
			st := ix.steps[ps.AstNodeIds[0]]
			s.Steps = append(s.Steps, Step{
				Keyword: st.keyword,
				Kind:    k.next(st.keyword),
				Text:    ps.Text,
				Line:    st.line,
			})
		}
		f.Scenarios = append(f.Scenarios, s)
	}
	return f, nil
}

// resolve converts AST steps that have already been indexed.
func (ix *index) resolve(list []*messages.Step) []Step {
	var k kinds
	out := make([]Step, 0, len(list))
	for _, st := range list {
		node := ix.steps[st.Id]
		out = append(out, Step{Keyword: node.keyword, Kind: k.next(node.keyword), Text: st.Text, Line: node.line})
	}
	return out
}

// kinds tracks the step kind that And and But inherit.
type kinds struct {
	last steps.Kind
}

func (k *kinds) next(keyword string) steps.Kind {
	switch keyword {
	case "And", "But":
		return k.last
	case "*":
		return steps.Any
	}
	kind, _ := steps.ParseKind(keyword)
	k.last = kind
	return kind
}

func tagNames(tags []*messages.Tag) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Name
	}
	return out
}

func pickleTags(tags []*messages.PickleTag) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Name
	}
	return out
}

func trimDescription(desc string) string {
	lines := strings.Split(desc, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
