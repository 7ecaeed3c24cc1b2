package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/autodj/internal/app/notification"
	"github.com/osa030/autodj/internal/app/playback"
	"github.com/osa030/autodj/internal/app/playlist"
	"github.com/osa030/autodj/internal/domain/track"
	"github.com/osa030/autodj/internal/infra/config"
)

const (
	guildA snowflake.ID = 1001
	guildB snowflake.ID = 1002
)

type fakeResolver struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls int
}

func (r *fakeResolver) Resolve(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.fail[url] {
		return "", errors.Newf("no title for %s", url)
	}
	return strings.ToUpper(url[strings.LastIndex(url, "/")+1:]), nil
}

func (r *fakeResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeConn struct{ guild snowflake.ID }

func (c fakeConn) GuildID() snowflake.ID { return c.guild }

type fakeConnections struct {
	mu     sync.Mutex
	guilds map[snowflake.ID]bool
}

func (c *fakeConnections) Get(guildID snowflake.ID) (playback.Connection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.guilds[guildID] {
		return nil, false
	}
	return fakeConn{guild: guildID}, true
}

func (c *fakeConnections) connect(guildID snowflake.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guilds[guildID] = true
}

type fakeHandle struct{ finished atomic.Bool }

func (h *fakeHandle) Finished() bool { return h.finished.Load() }

type fakePlayer struct {
	mu      sync.Mutex
	fail    map[string]bool
	started []string
	active  map[snowflake.ID]*fakeHandle
	stops   int

	// When gate is set, Start closes entered and blocks until gate is closed.
	entered chan struct{}
	gate    chan struct{}
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{fail: map[string]bool{}, active: map[snowflake.ID]*fakeHandle{}}
}

func (p *fakePlayer) Start(ctx context.Context, conn playback.Connection, source string) (playback.Handle, error) {
	if p.gate != nil {
		close(p.entered)
		<-p.gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail[source] {
		return nil, errors.New("stream refused")
	}
	h := &fakeHandle{}
	p.active[conn.GuildID()] = h
	p.started = append(p.started, source)
	return h, nil
}

func (p *fakePlayer) stopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

func (p *fakePlayer) Stop(guildID snowflake.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	if h, ok := p.active[guildID]; ok {
		h.finished.Store(true)
		delete(p.active, guildID)
	}
}

func (p *fakePlayer) finish(guildID snowflake.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.active[guildID]; ok {
		h.finished.Store(true)
	}
}

func (p *fakePlayer) startedURLs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.started...)
}

type fakeSender struct {
	mu       sync.Mutex
	messages []string
}

func (s *fakeSender) Send(ctx context.Context, channelID snowflake.ID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, content)
	return nil
}

func (s *fakeSender) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

type fixture struct {
	manager  *Manager
	resolver *fakeResolver
	player   *fakePlayer
	conns    *fakeConnections
	sender   *fakeSender
}

func newFixture(t *testing.T, autoplaylist ...string) *fixture {
	t.Helper()

	cfg := &config.Config{
		Monitor: config.MonitorConfig{IntervalMs: 10},
		Workers: config.WorkersConfig{MaxConcurrent: 2, ShutdownTimeoutMs: 1000},
		Autoplaylist: config.AutoplaylistConfig{
			TargetSize: 2,
		},
		Messages: config.MessagesConfig{
			NowPlaying:     `Playing "%s"`,
			PlaybackFailed: `Couldn't play "%s"`,
		},
	}
	if len(autoplaylist) > 0 {
		path := filepath.Join(t.TempDir(), "autoplaylist.txt")
		require.NoError(t, os.WriteFile(path, []byte(strings.Join(autoplaylist, "\n")), 0o644))
		cfg.Autoplaylist.Path = path
	}

	f := &fixture{
		resolver: &fakeResolver{fail: map[string]bool{}},
		player:   newFakePlayer(),
		conns:    &fakeConnections{guilds: map[snowflake.ID]bool{}},
		sender:   &fakeSender{},
	}
	m, err := NewManager(cfg, Options{
		Resolver:     f.resolver,
		Player:       f.player,
		Connections:  f.conns,
		Notification: notification.NewManager(f.sender, cfg.Messages),
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	f.manager = m
	return f
}

func channel(id snowflake.ID) *snowflake.ID {
	return &id
}

func TestNewManager_RequiresCollaborators(t *testing.T) {
	_, err := NewManager(&config.Config{}, Options{})
	assert.True(t, errors.Is(err, ErrMissingDependency))
}

func TestGetOrCreate_SharesConcurrentCreation(t *testing.T) {
	f := newFixture(t, "http://host/a", "http://host/b")

	const callers = 8
	results := make([]string, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := f.manager.GetOrCreate(context.Background(), guildA)
			if err == nil {
				results[i] = s.ID
			}
		}()
	}
	wg.Wait()

	for _, id := range results {
		assert.Equal(t, results[0], id)
	}
	assert.Len(t, f.manager.List(), 1)
	assert.Equal(t, 2, f.resolver.callCount(), "autoplaylist primed once")
}

func TestSession_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Session(guildA)
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	_, err = f.manager.Status(guildA)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestPush(t *testing.T) {
	f := newFixture(t, "http://host/auto")
	f.resolver.fail["http://host/broken"] = true
	ctx := context.Background()

	res, err := f.manager.Push(ctx, guildA, 7, channel(55), "http://host/x")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, "X", res.Title)

	status, err := f.manager.Status(guildA)
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "AUTO"}, status.Queue)
	assert.Equal(t, "idle", status.State)

	t.Run("rejected by filter", func(t *testing.T) {
		res, err := f.manager.Push(ctx, guildA, 7, nil, "not a url")
		require.NoError(t, err)
		assert.False(t, res.Accepted)
		assert.Equal(t, "invalid_url", res.Code)
	})

	t.Run("resolution failure", func(t *testing.T) {
		res, err := f.manager.Push(ctx, guildA, 7, nil, "http://host/broken")
		require.Error(t, err)
		assert.True(t, errors.Is(err, playlist.ErrResolutionFailed))
		assert.Equal(t, "push_failed", res.Code)

		status, err := f.manager.Status(guildA)
		require.NoError(t, err)
		assert.Equal(t, 1, status.Stats.Regular)
	})
}

func TestTick_WithoutConnection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.Push(ctx, guildA, 7, nil, "http://host/x")
	require.NoError(t, err)

	f.manager.tick(ctx)

	assert.Empty(t, f.player.startedURLs())
	status, err := f.manager.Status(guildA)
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, status.Queue)
}

func TestTick_StartsAndReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.conns.connect(guildA)

	_, err := f.manager.Push(ctx, guildA, 7, channel(55), "http://host/x")
	require.NoError(t, err)
	_, err = f.manager.Push(ctx, guildA, 7, channel(55), "http://host/y")
	require.NoError(t, err)

	f.manager.tick(ctx)
	assert.Equal(t, []string{"http://host/x"}, f.player.startedURLs())
	assert.Equal(t, []string{"```Playing \"X\"```"}, f.sender.sent())

	status, err := f.manager.Status(guildA)
	require.NoError(t, err)
	assert.Equal(t, "playing", status.State)
	require.NotNil(t, status.NowPlaying)
	assert.Equal(t, "X", status.NowPlaying.Title)
	assert.Equal(t, []string{"Y"}, status.Queue)

	// Still playing: nothing new starts.
	f.manager.tick(ctx)
	assert.Len(t, f.player.startedURLs(), 1)

	f.player.finish(guildA)
	f.manager.tick(ctx)
	assert.Equal(t, []string{"http://host/x", "http://host/y"}, f.player.startedURLs())
}

func TestTick_StartFailureMovesOn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.conns.connect(guildA)
	f.player.fail["http://host/x"] = true

	_, err := f.manager.Push(ctx, guildA, 7, channel(55), "http://host/x")
	require.NoError(t, err)
	_, err = f.manager.Push(ctx, guildA, 7, channel(55), "http://host/y")
	require.NoError(t, err)

	f.manager.tick(ctx)
	assert.Empty(t, f.player.startedURLs())
	assert.Equal(t, []string{"```Couldn't play \"X\"```"}, f.sender.sent())

	status, err := f.manager.Status(guildA)
	require.NoError(t, err)
	assert.Nil(t, status.NowPlaying)

	f.manager.tick(ctx)
	assert.Equal(t, []string{"http://host/y"}, f.player.startedURLs())
}

func TestTick_AutoplaylistHasNoChannel(t *testing.T) {
	f := newFixture(t, "http://host/auto")
	ctx := context.Background()
	f.conns.connect(guildA)

	_, err := f.manager.GetOrCreate(ctx, guildA)
	require.NoError(t, err)

	f.manager.tick(ctx)
	assert.Equal(t, []string{"http://host/auto"}, f.player.startedURLs())
	assert.Empty(t, f.sender.sent())
}

func TestSkip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.conns.connect(guildA)

	_, ok := f.manager.Skip(ctx, guildB)
	assert.False(t, ok, "no session")

	_, err := f.manager.Push(ctx, guildA, 7, nil, "http://host/x")
	require.NoError(t, err)
	f.manager.tick(ctx)

	entry, ok := f.manager.Skip(ctx, guildA)
	require.True(t, ok)
	assert.Equal(t, "X", entry.Title)

	before, err := f.manager.Status(guildA)
	require.NoError(t, err)

	_, ok = f.manager.Skip(ctx, guildA)
	assert.False(t, ok)
	_, ok = f.manager.Skip(ctx, guildA)
	assert.False(t, ok)

	after, err := f.manager.Status(guildA)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, f.player.stops)
}

func TestSkip_WaitsForTrackBeingStarted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.conns.connect(guildA)

	_, err := f.manager.Push(ctx, guildA, 7, nil, "http://host/x")
	require.NoError(t, err)

	f.player.entered = make(chan struct{})
	f.player.gate = make(chan struct{})
	ticked := make(chan struct{})
	go func() {
		f.manager.tick(ctx)
		close(ticked)
	}()
	<-f.player.entered

	type result struct {
		entry track.Entry
		ok    bool
	}
	skipped := make(chan result, 1)
	go func() {
		entry, ok := f.manager.Skip(ctx, guildA)
		skipped <- result{entry, ok}
	}()

	select {
	case <-skipped:
		t.Fatal("skip returned while the track was still starting")
	case <-time.After(50 * time.Millisecond):
	}

	close(f.player.gate)
	<-ticked
	res := <-skipped
	require.True(t, res.ok, "the track being started is the one skipped")
	assert.Equal(t, "X", res.entry.Title)
	assert.Equal(t, 1, f.player.stopCount())

	status, err := f.manager.Status(guildA)
	require.NoError(t, err)
	assert.Nil(t, status.NowPlaying)
}

// locatingResolver maps every url to a search source.
type locatingResolver struct {
	*fakeResolver
}

func (locatingResolver) StreamSource(ctx context.Context, url string) (string, error) {
	return "ytsearch1:" + url, nil
}

func TestTick_StartsPrecomputedSource(t *testing.T) {
	cfg := &config.Config{
		Monitor:      config.MonitorConfig{IntervalMs: 10},
		Workers:      config.WorkersConfig{MaxConcurrent: 1, ShutdownTimeoutMs: 1000},
		Autoplaylist: config.AutoplaylistConfig{TargetSize: 1},
	}
	r := &fakeResolver{fail: map[string]bool{}}
	player := newFakePlayer()
	conns := &fakeConnections{guilds: map[snowflake.ID]bool{}}
	m, err := NewManager(cfg, Options{
		Resolver:     locatingResolver{r},
		Player:       player,
		Connections:  conns,
		Notification: notification.NewManager(&fakeSender{}, cfg.Messages),
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	ctx := context.Background()
	conns.connect(guildA)
	_, err = m.Push(ctx, guildA, 7, nil, "http://host/x")
	require.NoError(t, err)
	calls := r.callCount()

	m.tick(ctx)
	assert.Equal(t, []string{"ytsearch1:http://host/x"}, player.startedURLs())
	assert.Equal(t, calls, r.callCount(), "starting a track makes no lookups")
}

func TestMonitor_StartStop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.conns.connect(guildA)

	f.manager.Stop() // not started yet

	require.NoError(t, f.manager.Start(ctx))
	assert.True(t, errors.Is(f.manager.Start(ctx), ErrMonitorRunning))

	_, err := f.manager.Push(ctx, guildA, 7, nil, "http://host/x")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(f.player.startedURLs()) == 1
	}, time.Second, 5*time.Millisecond)

	f.manager.Stop()
	select {
	case <-f.manager.Done():
	default:
		t.Fatal("monitor still running after Stop")
	}

	// Restartable after a stop.
	require.NoError(t, f.manager.Start(ctx))
	f.manager.Stop()
}

func TestWorkers(t *testing.T) {
	f := newFixture(t)
	running, pending := f.manager.Workers()
	assert.Equal(t, 0, running)
	assert.Equal(t, 0, pending)
}
