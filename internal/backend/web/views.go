package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"

	"github.com/leapstack-labs/leapbind/pkg/bind"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// pageView is the data of the index page.
type pageView struct {
	Title       string
	Client      string
	Seq         uint64
	Signals     string
	Observables []observableView
}

type observableView struct {
	ID         string
	Namespace  string
	Properties []propertyView
	Functions  []string
}

type propertyView struct {
	Name     string
	Path     string
	ReadOnly bool
	List     *listView
}

// listView renders one array property as elements so it can be patched
// in place.
type listView struct {
	Element string
	Owner   string
	Actions []string
	Items   []itemView
}

type itemView struct {
	ID    string
	Label string
}

func newListView(o *Observable, name string, values []any, actions []string) listView {
	lv := listView{
		Element: o.namespace + "-" + name,
		Owner:   o.id,
		Items:   make([]itemView, len(values)),
	}
	for _, fn := range actions {
		if _, ok := o.functions[fn]; ok {
			lv.Actions = append(lv.Actions, fn)
		}
	}
	for i, v := range values {
		if item, ok := v.(*Observable); ok {
			lv.Items[i] = itemView{ID: item.id, Label: bind.StringValue(item.model)}
			continue
		}
		lv.Items[i] = itemView{Label: bind.StringValue(v)}
	}
	return lv
}

func newObservableView(o *Observable, actions []string) observableView {
	ov := observableView{
		ID:        o.id,
		Namespace: o.namespace,
		Functions: append([]string(nil), o.functionNames...),
	}
	for _, p := range o.properties {
		pv := propertyView{
			Name:     p.Name(),
			Path:     o.namespace + "." + p.Name(),
			ReadOnly: p.ReadOnly(),
		}
		if items, ok := listItems(o.values[p.Name()]); ok {
			lv := newListView(o, p.Name(), items, actions)
			pv.List = &lv
		}
		ov.Properties = append(ov.Properties, pv)
	}
	return ov
}

// renderPage builds the index page. It must run on the loop.
func (t *Technology) renderPage(client string) ([]byte, error) {
	seq := t.Seq()
	signals := make(map[string]any)
	page := pageView{Title: t.title, Client: client, Seq: seq}
	for _, o := range t.Roots() {
		signals[o.namespace] = o.signals()
		page.Observables = append(page.Observables, newObservableView(o, t.itemFunctions))
	}
	raw, err := json.Marshal(signals)
	if err != nil {
		return nil, err
	}
	page.Signals = string(raw)

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "index.html", page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderList(lv listView) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "list", lv); err != nil {
		return "", err
	}
	return buf.String(), nil
}
