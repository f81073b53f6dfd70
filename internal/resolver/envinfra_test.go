package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lens/internal/model"
)

func TestEnvInfraResolver_ComposeServiceDependsOn(t *testing.T) {
	compose := []byte("services:\n  web:\n    image: app:latest\n    ports:\n      - \"8080:8080\"\n    depends_on:\n      - db\n  db:\n    image: postgres:16\n")
	r := EnvInfraResolver{ComposeFiles: map[string][]byte{"docker-compose.yml": compose}}

	nodes, edges, err := r.Resolve(nil, nil)
	require.NoError(t, err)

	var sawWeb, sawDB bool
	for _, n := range nodes {
		if n.ID == model.PrefixInfraService+"web" {
			sawWeb = true
		}
		if n.ID == model.PrefixInfraService+"db" {
			sawDB = true
		}
	}
	assert.True(t, sawWeb)
	assert.True(t, sawDB)

	require.Len(t, edges, 1)
	assert.Equal(t, model.PrefixInfraService+"web", edges[0].FromNode)
	assert.Equal(t, model.PrefixInfraService+"db", edges[0].ToNode)
	assert.Equal(t, model.EdgeDependsOn, edges[0].Kind)
}

func TestEnvInfraResolver_DotEnvDefinesVar(t *testing.T) {
	r := EnvInfraResolver{DotEnvFiles: map[string][]byte{".env": []byte("# comment\nexport DATABASE_URL=postgres://localhost\nAPI_KEY=abc123\n")}}
	nodes, _, err := r.Resolve(nil, nil)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, n := range nodes {
		names[n.Name] = true
	}
	assert.True(t, names["DATABASE_URL"])
	assert.True(t, names["API_KEY"])
}

func TestEnvInfraResolver_CodeLevelGetenvUse(t *testing.T) {
	fn := model.Node{
		ID: "config.load", Kind: model.KindFunction, Name: "load", FilePath: "config.py",
		SourceCode: "def load():\n    return os.getenv(\"SECRET_KEY\")",
	}
	_, edges, err := EnvInfraResolver{}.Resolve([]model.Node{fn}, nil)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, model.EdgeUsesEnv, edges[0].Kind)
	assert.Equal(t, model.PrefixEnvVar+"SECRET_KEY", edges[0].ToNode)
}

func TestEnvInfraResolver_ProcessEnvBrowserUse(t *testing.T) {
	fn := model.Node{
		ID: "web.config.apiBase", Kind: model.KindFunction, Name: "apiBase", FilePath: "web/config.ts",
		SourceCode: "export const apiBase = () => process.env.API_BASE_URL",
	}
	_, edges, err := EnvInfraResolver{}.Resolve([]model.Node{fn}, nil)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, model.PrefixEnvVar+"API_BASE_URL", edges[0].ToNode)
}

func TestEnvInfraResolver_ComposeBuildAndEnvironment(t *testing.T) {
	compose := []byte("services:\n  api:\n    build:\n      context: .\n      dockerfile: Dockerfile.api\n    environment:\n      - DATABASE_URL=postgres://db\n      - DEBUG\n")
	r := EnvInfraResolver{ComposeFiles: map[string][]byte{"docker-compose.yml": compose}}

	nodes, edges, err := r.Resolve(nil, nil)
	require.NoError(t, err)

	var svc *model.Node
	for i := range nodes {
		if nodes[i].ID == model.PrefixInfraService+"api" {
			svc = &nodes[i]
		}
	}
	require.NotNil(t, svc)
	assert.Equal(t, ".:Dockerfile.api", svc.Metadata["build"])
	env, ok := svc.Metadata["environment"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "postgres://db", env["DATABASE_URL"])
	assert.Equal(t, "", env["DEBUG"])

	var sawUsesEnv bool
	for _, e := range edges {
		if e.Kind == model.EdgeUsesEnv && e.FromNode == svc.ID && e.ToNode == model.PrefixEnvVar+"DATABASE_URL" {
			sawUsesEnv = true
		}
	}
	assert.True(t, sawUsesEnv)
}

func TestEnvInfraResolver_DockerfileDirectivesParsed(t *testing.T) {
	dockerfile := []byte("FROM golang:1.22 AS builder\nARG VERSION=1.0\nENV APP_ENV=production\nEXPOSE 8080 9090\nENTRYPOINT [\"./app\"]\n")
	r := EnvInfraResolver{Dockerfiles: map[string][]byte{"Dockerfile": dockerfile}}
	nodes, _, err := r.Resolve(nil, nil)
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	df := nodes[0]
	stages, ok := df.Metadata["stages"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, stages, 1)
	assert.Equal(t, "golang", stages[0]["image"])
	assert.Equal(t, "1.22", stages[0]["tag"])
	assert.Equal(t, "builder", stages[0]["stage"])

	ports, ok := df.Metadata["ports"].([]string)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"8080", "9090"}, ports)

	env, ok := df.Metadata["env"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "production", env["APP_ENV"])

	args, ok := df.Metadata["args"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "1.0", args["VERSION"])

	assert.Contains(t, df.Metadata["entrypoint"], "./app")
}

func TestEnvInfraResolver_DockerfileCopyFromStage(t *testing.T) {
	dockerfile := []byte("FROM golang:1.22 AS builder\nRUN go build -o app\nFROM scratch\nCOPY --from=builder /app /app\n")
	r := EnvInfraResolver{Dockerfiles: map[string][]byte{"Dockerfile": dockerfile}}
	nodes, edges, err := r.Resolve(nil, nil)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.Len(t, edges, 1)
	assert.Equal(t, model.EdgeDependsOn, edges[0].Kind)
	assert.Contains(t, edges[0].ToNode, "builder")
}
