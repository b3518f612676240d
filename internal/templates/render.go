package templates

import (
	"bufio"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"debtplan/internal/format"
)

var (
	lineNumberRe   = regexp.MustCompile(`:(\d+):`)
	templateCallRe = regexp.MustCompile(`\{\{-?\s*template\s+"([^"]+)"`)
)

// Renderer handles template rendering
type Renderer struct {
	mu        sync.RWMutex
	templates *template.Template
	debug     bool
	baseDir   string
}

// New parses every template under templateDir. In debug mode templates are
// re-parsed on each render.
func New(templateDir string, debug bool) (*Renderer, error) {
	r := &Renderer{
		debug:   debug,
		baseDir: templateDir,
	}

	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"money":          format.Money,
		"number":         format.Number,
		"percent":        format.Percent,
		"duration":       format.Duration,
		"monthYear":      format.MonthYear,
		"formatDate":     formatDate,
		"formatDateTime": formatDateTime,
		"add":            func(a, b int) int { return a + b },
		"sub":            func(a, b float64) float64 { return a - b },
		"deref":          deref,
		"dict":           dict,
		"toJSON":         toJSON,
		"lower":          strings.ToLower,
		"now":            time.Now,
	}
}

// Reload parses the template directory again
func (r *Renderer) Reload() error {
	var files []string
	for _, subdir := range []string{"layouts", "pages", "partials", "components"} {
		pattern := filepath.Join(r.baseDir, subdir, "*.html")
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("error globbing %s: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return fmt.Errorf("no template files found in %s", r.baseDir)
	}

	tmpl := template.New("").Funcs(funcMap())
	sources := make(map[string]string, len(files))

	var problems []string
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			problems = append(problems, fmt.Sprintf("  %s: failed to read: %v", file, err))
			continue
		}
		sources[file] = string(content)
		if _, err := tmpl.New(filepath.Base(file)).Parse(string(content)); err != nil {
			problems = append(problems, describeError(file, string(content), err))
		}
	}
	if len(problems) > 0 {
		logBlock("TEMPLATE PARSING ERRORS", problems)
		return fmt.Errorf("template parsing failed with %d error(s)", len(problems))
	}

	if problems := undefinedReferences(tmpl, sources); len(problems) > 0 {
		logBlock("UNDEFINED TEMPLATE REFERENCES", problems)
		return fmt.Errorf("found %d undefined template reference(s)", len(problems))
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	log.Printf("Templates loaded successfully: %d files", len(files))
	return nil
}

// describeError points at the offending line of a parse error
func describeError(file, content string, err error) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n  File: %s\n  Error: %s\n", file, err)

	m := lineNumberRe.FindStringSubmatch(err.Error())
	if len(m) < 2 {
		return sb.String()
	}
	var line int
	fmt.Sscanf(m[1], "%d", &line)

	lines := strings.Split(content, "\n")
	for i := max(line-3, 0); i < min(line+2, len(lines)); i++ {
		marker := "   "
		if i+1 == line {
			marker = ">>>"
		}
		fmt.Fprintf(&sb, "    %s %4d | %s\n", marker, i+1, lines[i])
	}
	return sb.String()
}

// undefinedReferences finds {{template "name"}} calls with no matching define
func undefinedReferences(tmpl *template.Template, sources map[string]string) []string {
	defined := make(map[string]bool)
	for _, t := range tmpl.Templates() {
		defined[t.Name()] = true
	}

	var problems []string
	for file, content := range sources {
		scanner := bufio.NewScanner(strings.NewReader(content))
		n := 0
		for scanner.Scan() {
			n++
			for _, m := range templateCallRe.FindAllStringSubmatch(scanner.Text(), -1) {
				if !defined[m[1]] {
					problems = append(problems, fmt.Sprintf("  %s:%d: undefined template %q", file, n, m[1]))
				}
			}
		}
	}
	return problems
}

func logBlock(title string, lines []string) {
	rule := strings.Repeat("=", 60)
	log.Printf("%s", rule)
	log.Printf("%s", title)
	log.Printf("%s", rule)
	for _, l := range lines {
		log.Printf("%s", l)
	}
	log.Printf("%s", rule)
}

func (r *Renderer) current() *template.Template {
	if r.debug {
		if err := r.Reload(); err != nil {
			log.Printf("Error reloading templates: %v", err)
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates
}

// Render renders a full page
func (r *Renderer) Render(w http.ResponseWriter, name string, data interface{}) error {
	return r.execute(w, "template", name, data)
}

// RenderPartial renders a fragment for htmx swaps
func (r *Renderer) RenderPartial(w http.ResponseWriter, name string, data interface{}) error {
	return r.execute(w, "partial", name, data)
}

func (r *Renderer) execute(w http.ResponseWriter, kind, name string, data interface{}) error {
	var buf strings.Builder
	if err := r.current().ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("Error rendering %s %s: %v", kind, name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := io.WriteString(w, buf.String())
	return err
}

// RenderToString renders a template to a string
func (r *Renderer) RenderToString(name string, data interface{}) (string, error) {
	var buf strings.Builder
	if err := r.current().ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006 3:04 PM")
}

// deref returns 0 for a nil pointer
func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// dict creates a map from key-value pairs
func dict(values ...interface{}) map[string]interface{} {
	if len(values)%2 != 0 {
		return nil
	}
	result := make(map[string]interface{}, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		if key, ok := values[i].(string); ok {
			result[key] = values[i+1]
		}
	}
	return result
}

func toJSON(v interface{}) template.JS {
	data, err := json.Marshal(v)
	if err != nil {
		return template.JS("null")
	}
	return template.JS(data)
}
