package source

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pfitan-web/aijobscraper/internal/jobs"
)

type seqIDGen struct {
	n int
}

func (g *seqIDGen) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("gen%d", g.n), nil
}

func TestNormalize_DropsRowsMissingTitleOrURL(t *testing.T) {
	t.Parallel()

	in := []jobs.Posting{
		{ID: "a-1", Title: "Dev", URL: "https://a"},
		{ID: "a-2", Title: "", URL: "https://b"},
		{ID: "a-3", Title: "Ops", URL: ""},
		{ID: "a-4", Title: "  ", URL: "https://c"},
		{ID: "a-5", Title: "SRE", URL: "https://d", Company: " ", Location: ""},
	}

	out := normalize(in)

	require.Len(t, out, 2)
	require.Equal(t, "a-1", out[0].ID)
	require.Equal(t, "a-5", out[1].ID)
	require.Equal(t, "unknown", out[1].Company)
	require.Equal(t, "unknown", out[1].Location)
}

func TestSynthesizeID(t *testing.T) {
	t.Parallel()

	gen := &seqIDGen{}

	id, err := synthesizeID("hw", "12345", gen)
	require.NoError(t, err)
	require.Equal(t, "hw-12345", id)

	id, err = synthesizeID("lin", "", gen)
	require.NoError(t, err)
	require.Equal(t, "lin-gen1", id)

	id, err = synthesizeID("lin", "  ", gen)
	require.NoError(t, err)
	require.Equal(t, "lin-gen2", id)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	gen := &seqIDGen{}
	reg := NewRegistry(
		NewCustom(gen, zap.NewNop()),
		NewHelloWork(gen, zap.NewNop(), nil),
	)

	require.Equal(t, []string{"custom", "hellowork"}, reg.Names())

	s, err := reg.Lookup("hellowork")
	require.NoError(t, err)
	require.True(t, s.NeedsSession())

	_, err = reg.Lookup("monster")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown source")

	require.Len(t, reg.All(), 2)
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	t.Parallel()

	gen := &seqIDGen{}
	require.Panics(t, func() {
		NewRegistry(NewCustom(gen, zap.NewNop()), NewCustom(gen, zap.NewNop()))
	})
}
