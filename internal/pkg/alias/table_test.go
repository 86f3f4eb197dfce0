package alias

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBackend struct {
	snap  Snapshot
	saves int
	err   error
}

func (m *memBackend) Load(context.Context) (Snapshot, error) {
	if m.snap == nil {
		return Snapshot{}, nil
	}
	return m.snap, nil
}

func (m *memBackend) Save(_ context.Context, snap Snapshot) error {
	if m.err != nil {
		return m.err
	}
	m.saves++
	m.snap = snap
	return nil
}

func (m *memBackend) Close() error { return nil }

func TestSeedNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	be := &memBackend{}
	tbl, err := Open(ctx, be, nil)
	require.NoError(t, err)

	require.NoError(t, tbl.Put(ctx, "aggregator", KindTeam, "Team A", "teamA"))
	require.NoError(t, tbl.Seed(ctx, "aggregator", KindTeam, "Team A"))
	require.NoError(t, tbl.Seed(ctx, "aggregator", KindTeam, "Team B"))

	got, ok := tbl.Lookup("aggregator", KindTeam, "Team A")
	require.True(t, ok)
	assert.Equal(t, "teamA", got)

	got, ok = tbl.Lookup("aggregator", KindTeam, "Team B")
	require.True(t, ok)
	assert.Equal(t, "Team B", got)

	assert.Equal(t, 2, be.saves, "no-op seed must not write")
}

func TestPutWritesThrough(t *testing.T) {
	ctx := context.Background()
	be := &memBackend{}
	tbl, err := Open(ctx, be, nil)
	require.NoError(t, err)

	var learned []Kind
	tbl.OnLearn = func(_ string, k Kind) { learned = append(learned, k) }

	require.NoError(t, tbl.Put(ctx, "exchange", KindLeague, "English Premier League", "EPL"))
	require.NoError(t, tbl.Put(ctx, "exchange", KindLeague, "English Premier League", "EPL"))

	assert.Equal(t, "EPL", be.snap["exchange"].Leagues["English Premier League"])
	assert.Equal(t, 1, be.saves)
	assert.Equal(t, []Kind{KindLeague}, learned)
}

type entryBackend struct {
	memBackend
	sources []string
	entries []Entry
}

func (e *entryBackend) SaveSource(_ context.Context, source string) error {
	e.sources = append(e.sources, source)
	return nil
}

func (e *entryBackend) SaveEntry(_ context.Context, entry Entry) error {
	e.entries = append(e.entries, entry)
	return nil
}

func TestEntryBackendGetsOnlyTheChange(t *testing.T) {
	ctx := context.Background()
	be := &entryBackend{}
	tbl, err := Open(ctx, be, nil)
	require.NoError(t, err)

	require.NoError(t, tbl.Ensure(ctx, "aggregator"))
	require.NoError(t, tbl.Seed(ctx, "exchange", KindTeam, "Arsenal"))
	require.NoError(t, tbl.Put(ctx, "aggregator", KindTeam, "Arsenal FC", "Arsenal"))
	require.NoError(t, tbl.Put(ctx, "aggregator", KindTeam, "Arsenal FC", "Arsenal"))
	require.NoError(t, tbl.Put(ctx, "aggregator", KindTeam, "Arsenal FC", "Gunners"))
	require.NoError(t, tbl.Persist(ctx))

	assert.Equal(t, []string{"aggregator"}, be.sources)
	assert.Equal(t, []Entry{
		{Source: "exchange", Kind: KindTeam, Raw: "Arsenal", Canonical: "Arsenal"},
		{Source: "aggregator", Kind: KindTeam, Raw: "Arsenal FC", Canonical: "Arsenal"},
		{Source: "aggregator", Kind: KindTeam, Raw: "Arsenal FC", Canonical: "Gunners"},
	}, be.entries)
	assert.Zero(t, be.saves, "no full snapshot writes")
}

func TestEnsureRegistersEmptySource(t *testing.T) {
	ctx := context.Background()
	tbl, err := Open(ctx, nil, nil)
	require.NoError(t, err)

	require.NoError(t, tbl.Ensure(ctx, "exchange"))
	n, ok := tbl.Get("exchange")
	require.True(t, ok)
	assert.Empty(t, n.Teams)
	assert.Empty(t, n.Leagues)

	_, ok = tbl.Lookup("exchange", KindTeam, "x")
	assert.False(t, ok)
	_, ok = tbl.Lookup("nobody", KindTeam, "x")
	assert.False(t, ok)
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	tbl, err := Open(ctx, nil, nil)
	require.NoError(t, err)
	require.NoError(t, tbl.Seed(ctx, "exchange", KindTeam, "Arsenal"))

	n, _ := tbl.Get("exchange")
	n.Teams["Arsenal"] = "changed"

	got, _ := tbl.Lookup("exchange", KindTeam, "Arsenal")
	assert.Equal(t, "Arsenal", got)
}

func TestPersistErrorIsReturned(t *testing.T) {
	ctx := context.Background()
	tbl, err := Open(ctx, &memBackend{err: errors.New("disk full")}, nil)
	require.NoError(t, err)

	err = tbl.Ensure(ctx, "exchange")
	assert.ErrorContains(t, err, "disk full")
}

func TestFileBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "aliases.json")
	be, err := NewFileBackend(path)
	require.NoError(t, err)

	snap, err := be.Load(ctx)
	require.NoError(t, err, "missing file is a first run")
	assert.Empty(t, snap)

	tbl, err := Open(ctx, be, nil)
	require.NoError(t, err)
	require.NoError(t, tbl.Put(ctx, "aggregator", KindTeam, "Team A", "teamA"))
	require.NoError(t, tbl.Ensure(ctx, "exchange"))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	reopened, err := Open(ctx, be, nil)
	require.NoError(t, err)
	got, ok := reopened.Lookup("aggregator", KindTeam, "Team A")
	require.True(t, ok)
	assert.Equal(t, "teamA", got)
	assert.Equal(t, []string{"aggregator", "exchange"}, reopened.Sources())
}

func TestFileBackendEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	be, err := NewFileBackend(path)
	require.NoError(t, err)
	snap, err := be.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestFileBackendCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	be, err := NewFileBackend(path)
	require.NoError(t, err)
	_, err = be.Load(context.Background())
	assert.Error(t, err)
}

func TestBadgerBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	be, err := NewBadgerBackend(t.TempDir())
	require.NoError(t, err)
	defer be.Close()

	snap := Snapshot{
		"exchange":   {Teams: map[string]string{"Arsenal": "Arsenal"}, Leagues: map[string]string{}},
		"aggregator": {Teams: map[string]string{"Arsenal FC": "Arsenal"}, Leagues: map[string]string{"EPL": "English Premier League"}},
	}
	require.NoError(t, be.Save(ctx, snap))

	got, err := be.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestOpenBackendUnknownKind(t *testing.T) {
	_, err := OpenBackend(context.Background(), "etcd", "", "")
	assert.Error(t, err)
}
