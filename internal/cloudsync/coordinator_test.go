package cloudsync

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/domain"
)

type fakeStore struct {
	mu       sync.Mutex
	doc      Document
	hasDoc   bool
	saved    []Document
	remoteCh chan Document
	closed   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{remoteCh: make(chan Document, 8)}
}

func (s *fakeStore) Load(ctx context.Context) (Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc, s.hasDoc, nil
}

func (s *fakeStore) Save(ctx context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	s.hasDoc = true
	s.saved = append(s.saved, doc)
	return nil
}

func (s *fakeStore) Subscribe(ctx context.Context) (<-chan Document, error) {
	return s.remoteCh, nil
}

func (s *fakeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.remoteCh)
	}
	return nil
}

func (s *fakeStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func (s *fakeStore) lastSaved(t *testing.T) Document {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saved) == 0 {
		t.Fatal("远端没有任何写入")
	}
	return s.saved[len(s.saved)-1]
}

// pushRemote 模拟其他实例发布的远端变更
func (s *fakeStore) pushRemote(t *testing.T, data domain.BoardData, updatedAt time.Time) {
	t.Helper()
	doc, err := EncodeDocument(data, updatedAt)
	if err != nil {
		t.Fatalf("EncodeDocument: %v", err)
	}
	s.remoteCh <- doc
}

type fakeBoard struct {
	mu      sync.Mutex
	data    domain.BoardData
	session bool
}

func (b *fakeBoard) SessionActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

func (b *fakeBoard) setSession(active bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = active
}

func (b *fakeBoard) Snapshot() domain.BoardData {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data.Clone()
}

func (b *fakeBoard) ReplaceAll(data domain.BoardData) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = data.Clone()
}

func (b *fakeBoard) LastUpdateTime() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data.LastUpdate == nil {
		return time.Time{}
	}
	return b.data.LastUpdate.Time
}

func (b *fakeBoard) peopleNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, len(b.data.People))
	for i, p := range b.data.People {
		names[i] = p.Name
	}
	return names
}

func boardAt(name string, t time.Time, people ...string) domain.BoardData {
	data := domain.BoardData{
		LastUpdate: &domain.UpdateInfo{Time: t, Name: name},
	}
	for i, n := range people {
		data.People = append(data.People, domain.Person{
			ID: n, Name: n, Role: domain.RoleWorker, SiteID: "s1", HasLunch: i%2 == 0,
		})
	}
	return data
}

func startCoordinator(t *testing.T, board Board, store *fakeStore, debounce time.Duration) *Coordinator {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord := New(board, logger, Options{
		Debounce: debounce,
		OpenStore: func(ctx context.Context, cfg Config) (DocumentStore, error) {
			return store, nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go coord.Run(ctx)
	t.Cleanup(func() {
		coord.Stop()
		cancel()
	})

	if err := coord.ApplyConfig(context.Background(), Config{
		Addr: "fake", DocumentKey: "board:document", Channel: "board:changes",
	}); err != nil {
		t.Fatalf("ApplyConfig: %v", err)
	}
	return coord
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestDebounceMergesLocalChanges(t *testing.T) {
	base := time.Now()
	board := &fakeBoard{data: boardAt("山田", base, "田中")}
	store := newFakeStore()
	coord := startCoordinator(t, board, store, 30*time.Millisecond)

	for i := 0; i < 5; i++ {
		coord.NotifyLocalChange()
		time.Sleep(2 * time.Millisecond)
	}

	if !waitFor(t, time.Second, func() bool { return store.saveCount() >= 1 }) {
		t.Fatal("防抖到期后应写一次远端")
	}
	// 再等一个防抖周期，确认没有第二次写入
	time.Sleep(80 * time.Millisecond)
	if got := store.saveCount(); got != 1 {
		t.Errorf("连续变更应合并为一次写入, got %d", got)
	}

	doc := store.lastSaved(t)
	if !doc.UpdatedAt.Equal(base) {
		t.Errorf("上传的 updatedAt = %v, want %v", doc.UpdatedAt, base)
	}
}

func TestFlushSkipsUnstampedData(t *testing.T) {
	board := &fakeBoard{data: domain.BoardData{}} // 从未完成过配置
	store := newFakeStore()
	coord := startCoordinator(t, board, store, 10*time.Millisecond)

	coord.NotifyLocalChange()
	time.Sleep(60 * time.Millisecond)

	if got := store.saveCount(); got != 0 {
		t.Errorf("没有完成时刻的数据不应上传, 写入了 %d 次", got)
	}
}

func TestRemoteChangeApplied(t *testing.T) {
	base := time.Now()
	board := &fakeBoard{data: boardAt("山田", base, "田中")}
	store := newFakeStore()
	var persisted []domain.BoardData
	var persistMu sync.Mutex

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord := New(board, logger, Options{
		Debounce: 10 * time.Millisecond,
		OpenStore: func(ctx context.Context, cfg Config) (DocumentStore, error) {
			return store, nil
		},
		Persist: func(data domain.BoardData) {
			persistMu.Lock()
			persisted = append(persisted, data)
			persistMu.Unlock()
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	go coord.Run(ctx)
	t.Cleanup(func() {
		coord.Stop()
		cancel()
	})
	if err := coord.ApplyConfig(context.Background(), Config{
		Addr: "fake", DocumentKey: "k", Channel: "c",
	}); err != nil {
		t.Fatalf("ApplyConfig: %v", err)
	}

	store.pushRemote(t, boardAt("铃木", base.Add(time.Minute), "佐藤", "高桥"), base.Add(time.Minute))

	if !waitFor(t, time.Second, func() bool { return len(board.peopleNames()) == 2 }) {
		t.Fatalf("远端变更应替换本地数据, people = %v", board.peopleNames())
	}
	persistMu.Lock()
	defer persistMu.Unlock()
	if len(persisted) != 1 {
		t.Errorf("应用远端变更后应落盘一次, got %d", len(persisted))
	}
}

func TestStaleRemoteChangeDiscarded(t *testing.T) {
	base := time.Now()
	board := &fakeBoard{data: boardAt("山田", base, "田中")}
	store := newFakeStore()
	startCoordinator(t, board, store, 10*time.Millisecond)

	// 远端文档的完成时刻早于本地，应被丢弃
	store.pushRemote(t, boardAt("铃木", base.Add(-time.Minute), "佐藤"), base.Add(-time.Minute))

	time.Sleep(60 * time.Millisecond)
	if names := board.peopleNames(); len(names) != 1 || names[0] != "田中" {
		t.Errorf("过期的远端变更不应被应用, people = %v", names)
	}
}

func TestNoOutboundFlushDuringSession(t *testing.T) {
	base := time.Now()
	board := &fakeBoard{data: boardAt("山田", base, "田中"), session: true}
	store := newFakeStore()
	coord := startCoordinator(t, board, store, 50*time.Millisecond)

	// 会话中的每次改动都会触发本地变更通知，但未提交的数据不应外发
	coord.NotifyLocalChange()
	time.Sleep(150 * time.Millisecond)
	if got := store.saveCount(); got != 0 {
		t.Errorf("会话进行中不应写远端, 写入了 %d 次", got)
	}

	// 防抖计时已开始后才进入会话，到期时同样不外发
	board.setSession(false)
	coord.NotifyLocalChange()
	board.setSession(true)
	time.Sleep(150 * time.Millisecond)
	if got := store.saveCount(); got != 0 {
		t.Errorf("防抖期间开始的会话也不应写远端, 写入了 %d 次", got)
	}

	// 会话结束后的变更通知恢复正常上传
	board.setSession(false)
	coord.NotifyLocalChange()
	if !waitFor(t, time.Second, func() bool { return store.saveCount() == 1 }) {
		t.Errorf("会话结束后应恢复上传, 写入 %d 次", store.saveCount())
	}
}

func TestRemoteChangeBlockedDuringSession(t *testing.T) {
	base := time.Now()
	board := &fakeBoard{data: boardAt("山田", base, "田中"), session: true}
	store := newFakeStore()
	startCoordinator(t, board, store, 10*time.Millisecond)

	store.pushRemote(t, boardAt("铃木", base.Add(time.Minute), "佐藤"), base.Add(time.Minute))

	time.Sleep(60 * time.Millisecond)
	if names := board.peopleNames(); len(names) != 1 || names[0] != "田中" {
		t.Errorf("配置会话进行中不应应用远端变更, people = %v", names)
	}
}

func TestEchoSuppressed(t *testing.T) {
	base := time.Now()
	board := &fakeBoard{data: boardAt("山田", base, "田中")}
	store := newFakeStore()
	coord := startCoordinator(t, board, store, 10*time.Millisecond)

	store.pushRemote(t, boardAt("铃木", base.Add(time.Minute), "佐藤"), base.Add(time.Minute))
	if !waitFor(t, time.Second, func() bool {
		names := board.peopleNames()
		return len(names) == 1 && names[0] == "佐藤"
	}) {
		t.Fatal("远端变更未被应用")
	}

	// 引擎应用远端数据时也会触发变化回调，这个回声不应写回远端
	coord.NotifyLocalChange()
	time.Sleep(60 * time.Millisecond)
	if got := store.saveCount(); got != 0 {
		t.Errorf("回声不应写回远端, 写入了 %d 次", got)
	}

	// 回声之后真正的本地变更仍应正常上传
	coord.NotifyLocalChange()
	if !waitFor(t, time.Second, func() bool { return store.saveCount() == 1 }) {
		t.Errorf("后续本地变更应上传, 写入 %d 次", store.saveCount())
	}
}

func TestInitialLoadApplied(t *testing.T) {
	base := time.Now()
	board := &fakeBoard{}
	store := newFakeStore()
	doc, err := EncodeDocument(boardAt("铃木", base, "佐藤"), base)
	if err != nil {
		t.Fatalf("EncodeDocument: %v", err)
	}
	store.doc = doc
	store.hasDoc = true

	coord := startCoordinator(t, board, store, 10*time.Millisecond)

	if !waitFor(t, time.Second, func() bool { return len(board.peopleNames()) == 1 }) {
		t.Fatal("连接后应加载远端文档")
	}
	if got := coord.Status(); got != StatusConnected {
		t.Errorf("Status = %s, want CONNECTED", got)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	base := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	data := boardAt("山田", base, "田中", "佐藤")
	data.Sites = []domain.Site{{ID: "s1", Name: "站前现场", GroupOrder: []domain.GroupKey{"null"}}}
	data.Vehicles = []domain.Vehicle{{ID: "v1", Name: "1号车"}}

	doc, err := EncodeDocument(data, base)
	if err != nil {
		t.Fatalf("EncodeDocument: %v", err)
	}
	got, err := DecodeDocument(doc)
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}

	if len(got.Sites) != 1 || got.Sites[0].Name != "站前现场" {
		t.Errorf("Sites = %+v", got.Sites)
	}
	if len(got.People) != 2 || len(got.Vehicles) != 1 {
		t.Errorf("People = %d, Vehicles = %d", len(got.People), len(got.Vehicles))
	}
	if got.LastUpdate == nil || !got.LastUpdate.Time.Equal(base) {
		t.Errorf("LastUpdate = %+v", got.LastUpdate)
	}

	// 字段损坏时整个文档都不应被应用
	doc.People = "{broken"
	if _, err := DecodeDocument(doc); err == nil {
		t.Error("损坏的字段应返回错误")
	}
}
