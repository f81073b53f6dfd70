package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lens/internal/model"
)

func TestAPIResolver_MatchesFetchToBackendRoute(t *testing.T) {
	backend := model.Node{
		ID: "api.users.list", Kind: model.KindFunction, Name: "list_users", FilePath: "api/users.py",
		SourceCode: "@app.get(\"/users/{id}\")\ndef list_users(id):\n    pass",
	}
	frontend := model.Node{
		ID: "web.hooks.useUser", Kind: model.KindFunction, Name: "useUser", FilePath: "web/hooks.ts",
		SourceCode: "function useUser(id) {\n  return fetch(`/users/${id}`)\n}",
	}

	nodes, edges, err := APIResolver{}.Resolve([]model.Node{backend, frontend}, nil)
	require.NoError(t, err)
	assert.Nil(t, nodes)
	require.Len(t, edges, 1)
	assert.Equal(t, frontend.ID, edges[0].FromNode)
	assert.Equal(t, backend.ID, edges[0].ToNode)
	assert.Equal(t, model.EdgeCallsAPI, edges[0].Kind)
}

func TestAPIResolver_RouterPrefixApplied(t *testing.T) {
	backend := model.Node{
		ID: "api.orders.create", Kind: model.KindFunction, Name: "create_order", FilePath: "api/orders.py",
		SourceCode: "router = APIRouter(prefix=\"/orders\")\n\n@router.post(\"/\")\ndef create_order():\n    pass",
	}
	frontend := model.Node{
		ID: "web.orders.submit", Kind: model.KindFunction, Name: "submit", FilePath: "web/orders.ts",
		SourceCode: "axios.post(\"/orders\", body)",
	}

	_, edges, err := APIResolver{}.Resolve([]model.Node{backend, frontend}, nil)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "POST", edges[0].Metadata["method"])
}

func TestAPIResolver_NoMatchWhenMethodsDiffer(t *testing.T) {
	backend := model.Node{
		ID: "api.items.delete", Kind: model.KindFunction, Name: "delete_item",
		SourceCode: "@app.delete(\"/items/{id}\")\ndef delete_item(id):\n    pass",
	}
	frontend := model.Node{
		ID: "web.items.get", Kind: model.KindFunction, Name: "getItem",
		SourceCode: "axios.get(\"/items/5\")",
	}
	_, edges, err := APIResolver{}.Resolve([]model.Node{backend, frontend}, nil)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestAPIResolver_SkipsTestNodesAsBackendRoutes(t *testing.T) {
	testNode := model.Node{
		ID: "tests.test_api.test_list", Kind: model.KindFunction, Name: "test_list_users", FilePath: "tests/test_api.py",
		SourceCode: "@app.get(\"/users\")\ndef test_list_users():\n    pass",
	}
	frontend := model.Node{
		ID: "web.hooks.useUsers", Kind: model.KindFunction, Name: "useUsers",
		SourceCode: "fetch(\"/users\")",
	}
	_, edges, err := APIResolver{}.Resolve([]model.Node{testNode, frontend}, nil)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestAPIResolver_IncludeRouterPropagatesPrefixAcrossFiles(t *testing.T) {
	mainModule := model.Node{ID: "main", Kind: model.KindModule, FilePath: "main.py"}
	subModule := model.Node{ID: "routers.sub", Kind: model.KindModule, FilePath: "routers/sub.py"}
	mount := model.Node{
		ID: "main.setup", Kind: model.KindFunction, Name: "setup", FilePath: "main.py",
		SourceCode: "app.include_router(router, prefix=\"/api\")",
	}
	handler := model.Node{
		ID: "routers.sub.create", Kind: model.KindFunction, Name: "create", FilePath: "routers/sub.py",
		SourceCode: "router = APIRouter(prefix=\"/things\")\n\n@router.post(\"/\")\ndef create():\n    pass",
	}
	frontend := model.Node{
		ID: "web.things.submit", Kind: model.KindFunction, Name: "submit", FilePath: "web/things.ts",
		SourceCode: "axios.post(\"/api/things\", body)",
	}
	importEdge := model.Edge{FromNode: "main", ToNode: "routers.sub.router", Kind: model.EdgeImports}

	_, edges, err := APIResolver{}.Resolve(
		[]model.Node{mainModule, subModule, mount, handler, frontend},
		[]model.Edge{importEdge},
	)
	require.NoError(t, err)

	var found bool
	for _, e := range edges {
		if e.FromNode == frontend.ID && e.ToNode == handler.ID {
			found = true
			assert.Equal(t, "/api/things", e.Metadata["path"])
		}
	}
	assert.True(t, found)
}
