package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lens/internal/model"
)

func TestSQLResolver_DeclarativeModelResolvesToClassNode(t *testing.T) {
	model_ := model.Node{
		ID: "models.User", Kind: model.KindClass, Name: "User", FilePath: "models.py",
		SourceCode: "class User(Base):\n    __tablename__ = \"users\"\n    id = Column(Integer, primary_key=True)",
	}
	fn := model.Node{
		ID: "service.list_users", Kind: model.KindFunction, Name: "list_users", FilePath: "service.py",
		SourceCode: "def list_users():\n    return session.query(User).all()",
	}

	nodes, edges, err := SQLResolver{}.Resolve([]model.Node{model_, fn}, nil)
	require.NoError(t, err)
	assert.Empty(t, nodes)
	require.Len(t, edges, 1)
	assert.Equal(t, model_.ID, edges[0].ToNode)
	assert.Equal(t, model.EdgeReadsTable, edges[0].Kind)
}

func TestSQLResolver_RawSQLFileProducesMigratesEdge(t *testing.T) {
	r := SQLResolver{SQLFiles: map[string][]byte{
		"migrations/0001_init.sql": []byte("CREATE TABLE users (id INTEGER PRIMARY KEY);\nINSERT INTO users VALUES (1);"),
	}}

	nodes, edges, err := r.Resolve(nil, nil)
	require.NoError(t, err)

	var sqlNode *model.Node
	for i := range nodes {
		if nodes[i].ID == "sql.migrations.0001_init" {
			sqlNode = &nodes[i]
		}
	}
	require.NotNil(t, sqlNode)
	assert.Equal(t, []string{"users"}, sqlNode.Metadata["tables"])

	require.Len(t, edges, 1)
	assert.Equal(t, "sql.migrations.0001_init", edges[0].FromNode)
	assert.Equal(t, model.EdgeMigrates, edges[0].Kind)
	assert.Equal(t, "db.table.users", edges[0].ToNode)
}

func TestSQLResolver_RawSQLCreatesVirtualTable(t *testing.T) {
	fn := model.Node{
		ID: "repo.raw_fetch", Kind: model.KindFunction, Name: "raw_fetch", FilePath: "repo.py",
		SourceCode: "def raw_fetch(cur):\n    cur.execute(\"SELECT * FROM invoices WHERE id = %s\", (id,))",
	}
	nodes, edges, err := SQLResolver{}.Resolve([]model.Node{fn}, nil)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, model.PrefixDBTable+"invoices", nodes[0].ID)
	require.Len(t, edges, 1)
	assert.Equal(t, model.EdgeReadsTable, edges[0].Kind)
}

func TestSQLResolver_DjangoORMWrite(t *testing.T) {
	fn := model.Node{
		ID: "views.create_order", Kind: model.KindFunction, Name: "create_order", FilePath: "views.py",
		SourceCode: "def create_order(data):\n    Order.objects.create(**data)",
	}
	nodes, edges, err := SQLResolver{}.Resolve([]model.Node{fn}, nil)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, model.PrefixDBTable+"order", nodes[0].ID)
	require.Len(t, edges, 1)
	assert.Equal(t, model.EdgeWritesTable, edges[0].Kind)
}

func TestSQLResolver_InstanceSaveTracksAssignedVariable(t *testing.T) {
	fn := model.Node{
		ID: "views.update_profile", Kind: model.KindFunction, Name: "update_profile", FilePath: "views.py",
		SourceCode: "def update_profile(name):\n    profile = Profile(name=name)\n    profile.save()",
	}
	nodes, edges, err := SQLResolver{}.Resolve([]model.Node{fn}, nil)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, model.PrefixDBTable+"profile", nodes[0].ID)
	require.Len(t, edges, 1)
	assert.Equal(t, model.EdgeWritesTable, edges[0].Kind)
}

func TestSQLResolver_NoiseTableNamesSkipped(t *testing.T) {
	fn := model.Node{
		ID: "repo.query", Kind: model.KindFunction, Name: "query",
		SourceCode: "def query(cur):\n    cur.execute(\"SELECT * FROM information_schema.tables\")",
	}
	nodes, edges, err := SQLResolver{}.Resolve([]model.Node{fn}, nil)
	require.NoError(t, err)
	assert.Empty(t, nodes)
	assert.Empty(t, edges)
}
