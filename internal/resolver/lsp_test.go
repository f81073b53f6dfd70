package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lens/internal/lsp"
	"lens/internal/model"
)

type fakeLSPClient struct {
	definitions map[string]lsp.Location
	initialized bool
	shutdown    bool
	opened      []string
}

func (f *fakeLSPClient) Initialize(rootURI string, timeout time.Duration) error {
	f.initialized = true
	return nil
}

func (f *fakeLSPClient) DidOpen(uri, languageID, text string) {
	f.opened = append(f.opened, uri)
}

func (f *fakeLSPClient) Definition(uri string, pos lsp.Position, timeout time.Duration) (*lsp.Location, bool, error) {
	loc, ok := f.definitions[uri]
	if !ok {
		return nil, false, nil
	}
	return &loc, true, nil
}

func (f *fakeLSPClient) Shutdown(timeout time.Duration) error {
	f.shutdown = true
	return nil
}

func TestLSPResolver_UpgradesInferredCallToResolved(t *testing.T) {
	callerFile := "service.py"
	fake := &fakeLSPClient{
		definitions: map[string]lsp.Location{
			"file:///proj/service.py": {URI: "file:///proj/models.py"},
		},
	}
	fake.definitions["file:///proj/service.py"] = lsp.Location{URI: "file:///proj/models.py"}

	nodes := []model.Node{
		{ID: "service.create_greeting", Kind: model.KindFunction, FilePath: callerFile},
		{ID: "models.User.greet", Kind: model.KindMethod, FilePath: "models.py"},
	}
	edges := []model.Edge{
		{FromNode: "service.create_greeting", ToNode: "models.User.greet", Kind: model.EdgeCalls, Confidence: model.ConfidenceInferred},
	}

	r := LSPResolver{
		Client:      fake,
		ProjectRoot: "/proj",
		LanguageID:  "python",
		FileContent: map[string]string{
			"service.py": "def create_greeting(name):\n    u = User(name)\n    return u.greet()",
			"models.py":  "class User:\n    def greet(self):\n        return 1",
		},
	}

	_, _, err := r.Resolve(nodes, edges)
	require.NoError(t, err)
	assert.True(t, fake.initialized)
	assert.True(t, fake.shutdown)
	assert.Equal(t, model.ConfidenceResolved, edges[0].Confidence)
}

func TestLSPResolver_ExternalDefinitionMarksEdgeExternal(t *testing.T) {
	fake := &fakeLSPClient{
		definitions: map[string]lsp.Location{
			"file:///proj/service.py": {URI: "file:///usr/lib/python3.11/site-packages/requests/api.py"},
		},
	}
	nodes := []model.Node{
		{ID: "service.fetch", Kind: model.KindFunction, FilePath: "service.py"},
		{ID: "requests.get", Kind: model.KindFunction},
	}
	edges := []model.Edge{
		{FromNode: "service.fetch", ToNode: "requests.get", Kind: model.EdgeCalls, Confidence: model.ConfidenceInferred},
	}
	r := LSPResolver{
		Client:      fake,
		ProjectRoot: "/proj",
		FileContent: map[string]string{"service.py": "def fetch():\n    return get(url)"},
	}
	_, _, err := r.Resolve(nodes, edges)
	require.NoError(t, err)
	assert.Equal(t, model.ConfidenceExternal, edges[0].Confidence)
}

func TestLSPResolver_NoClientIsNoOp(t *testing.T) {
	edges := []model.Edge{{FromNode: "a", ToNode: "b", Kind: model.EdgeCalls, Confidence: model.ConfidenceInferred}}
	nodes, newEdges, err := LSPResolver{}.Resolve(nil, edges)
	require.NoError(t, err)
	assert.Nil(t, nodes)
	assert.Nil(t, newEdges)
	assert.Equal(t, model.ConfidenceInferred, edges[0].Confidence)
}

func TestLSPResolver_SkipsNonInferredCallsEdges(t *testing.T) {
	fake := &fakeLSPClient{}
	nodes := []model.Node{{ID: "a", FilePath: "a.py"}}
	edges := []model.Edge{
		{FromNode: "a", ToNode: "b", Kind: model.EdgeImports, Confidence: model.ConfidenceInferred},
		{FromNode: "a", ToNode: "b", Kind: model.EdgeCalls, Confidence: model.ConfidenceResolved},
	}
	r := LSPResolver{Client: fake, ProjectRoot: "/proj", FileContent: map[string]string{"a.py": "b()"}}
	_, _, err := r.Resolve(nodes, edges)
	require.NoError(t, err)
	assert.Empty(t, fake.opened)
}
