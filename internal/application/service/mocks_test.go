package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/garyjia/voucher-sync/internal/application/port"
	"github.com/garyjia/voucher-sync/internal/domain/entity"
)

var errBoom = errors.New("boom")

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
	fields map[string][]interface{}
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
	if m.fields == nil {
		m.fields = make(map[string][]interface{})
	}
	m.fields[msg] = keysAndValues
}

// field returns the value logged under key by the last Info call with msg
func (m *mockLogger) field(msg, key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kv := m.fields[msg]
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i] == key {
			return kv[i+1], true
		}
	}
	return nil, false
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

// fakeRecordStore is an in-memory RecordStore
type fakeRecordStore struct {
	mu       sync.Mutex
	nextID   int
	vouchers map[string]*entity.Voucher
	counters map[string]int

	createErr   error
	allocateErr error
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{
		vouchers: make(map[string]*entity.Voucher),
		counters: make(map[string]int),
	}
}

func (f *fakeRecordStore) Create(ctx context.Context, v *entity.Voucher) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	v.ID = strconv.Itoa(f.nextID)
	cp := *v
	f.vouchers[v.ID] = &cp
	return nil
}

func (f *fakeRecordStore) GetByID(ctx context.Context, id, owner string) (*entity.Voucher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vouchers[id]
	if !ok || v.Owner != owner {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (f *fakeRecordStore) FindByNumber(ctx context.Context, owner string, number int, category string) ([]*entity.Voucher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Voucher
	for _, v := range f.vouchers {
		if v.Owner == owner && v.Number == number && (category == "" || v.Category == category) {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRecordStore) Update(ctx context.Context, v *entity.Voucher) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vouchers[v.ID]; !ok {
		return fmt.Errorf("voucher %s not found", v.ID)
	}
	cp := *v
	f.vouchers[v.ID] = &cp
	return nil
}

func (f *fakeRecordStore) Delete(ctx context.Context, id, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.vouchers, id)
	return nil
}

func (f *fakeRecordStore) List(ctx context.Context, owner string, filter port.ListFilter) ([]*entity.Voucher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Voucher
	for _, v := range f.vouchers {
		if v.Owner != owner {
			continue
		}
		if filter.Category != "" && v.Category != filter.Category {
			continue
		}
		if filter.Date != "" && v.Date != filter.Date {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		switch filter.Sort {
		case entity.SortByAmountAsc:
			return out[i].AmountValue() < out[j].AmountValue()
		case entity.SortByAmountDesc:
			return out[i].AmountValue() > out[j].AmountValue()
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (f *fakeRecordStore) FindWorkspace(ctx context.Context, owner, category string) (*entity.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.vouchers {
		if v.Owner == owner && v.Category == category {
			return &entity.Workspace{Owner: owner, Category: category, SpreadsheetID: v.SpreadsheetID, FolderID: v.FolderID}, nil
		}
	}
	return nil, nil
}

func (f *fakeRecordStore) PeekNumber(ctx context.Context, owner, category string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters[owner+"|"+category] + 1, nil
}

func (f *fakeRecordStore) AllocateNumber(ctx context.Context, owner, category string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allocateErr != nil {
		return 0, f.allocateErr
	}
	key := owner + "|" + category
	f.counters[key]++
	return f.counters[key], nil
}

func (f *fakeRecordStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.vouchers)
}

// fakeSheets keeps one grid per spreadsheet
type fakeSheets struct {
	mu     sync.Mutex
	nextID int
	grids  map[string][][]string
	calls  []string

	createErr error
	appendErr error
	writeErr  error
	readErr   error

	// createEntered and createGate, when set, hold Create until the test
	// releases it.
	createEntered chan struct{}
	createGate    chan struct{}
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{grids: make(map[string][][]string)}
}

func (f *fakeSheets) Create(ctx context.Context, title, sheet string, columns int) (string, error) {
	if f.createGate != nil {
		close(f.createEntered)
		<-f.createGate
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create")
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	id := fmt.Sprintf("sheet-%d", f.nextID)
	f.grids[id] = nil
	return id, nil
}

func (f *fakeSheets) ReadRange(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "read")
	if f.readErr != nil {
		return nil, f.readErr
	}
	var out [][]string
	for _, row := range f.grids[spreadsheetID] {
		if len(row) == 0 {
			out = append(out, []string{})
			continue
		}
		out = append(out, []string{row[0]})
	}
	return out, nil
}

func (f *fakeSheets) WriteRange(ctx context.Context, spreadsheetID, rng string, rows [][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "write")
	if f.writeErr != nil {
		return f.writeErr
	}
	r := rowOf(rng)
	grid := f.grids[spreadsheetID]
	for len(grid) < r {
		grid = append(grid, nil)
	}
	grid[r-1] = append([]string(nil), rows[0]...)
	f.grids[spreadsheetID] = grid
	return nil
}

func (f *fakeSheets) Append(ctx context.Context, spreadsheetID, rng string, rows [][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "append")
	if f.appendErr != nil {
		return f.appendErr
	}
	for _, row := range rows {
		f.grids[spreadsheetID] = append(f.grids[spreadsheetID], append([]string(nil), row...))
	}
	return nil
}

func (f *fakeSheets) ClearRange(ctx context.Context, spreadsheetID, rng string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "clear")
	r := rowOf(rng)
	if grid := f.grids[spreadsheetID]; r <= len(grid) {
		grid[r-1] = nil
	}
	return nil
}

func (f *fakeSheets) rows(spreadsheetID string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.grids[spreadsheetID]
}

func (f *fakeSheets) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func rowOf(rng string) int {
	a1 := rng[strings.LastIndex(rng, "!")+1:]
	var r int
	fmt.Sscanf(a1, "A%d", &r)
	return r
}

type fakeDocs struct {
	mu      sync.Mutex
	nextID  int
	folders []string
	files   map[string][]byte
	deleted []string

	folderErr error
	uploadErr error
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{files: make(map[string][]byte)}
}

func (f *fakeDocs) CreateFolder(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.folderErr != nil {
		return "", f.folderErr
	}
	f.nextID++
	id := fmt.Sprintf("folder-%d", f.nextID)
	f.folders = append(f.folders, id)
	return id, nil
}

func (f *fakeDocs) Upload(ctx context.Context, name, parentID string, content io.Reader) (*port.UploadedDocument, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.nextID++
	id := fmt.Sprintf("doc-%d", f.nextID)
	f.files[id] = data
	return &port.UploadedDocument{ID: id, Link: "https://drive.example/" + id}, nil
}

func (f *fakeDocs) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeDocs) fileCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

type fakeSharer struct {
	mu     sync.Mutex
	shared map[string]string
	err    error
}

func (f *fakeSharer) Share(ctx context.Context, resourceID, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.shared == nil {
		f.shared = make(map[string]string)
	}
	f.shared[resourceID] = email
	return nil
}

type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) Render(ctx context.Context, v *entity.Voucher, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := fmt.Fprintf(w, "%%PDF-1.3 %s #%d %s", v.Category, v.Number, v.Amount)
	return err
}

type memFile struct {
	bytes.Buffer
	store *fakeFiles
	path  string
}

func (m *memFile) Close() error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.files[m.path] = m.Bytes()
	return nil
}

// fakeFiles is an in-memory FileStorage that records removals
type fakeFiles struct {
	mu      sync.Mutex
	n       int
	files   map[string][]byte
	removed []string
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{files: make(map[string][]byte)}
}

func (f *fakeFiles) Create(ctx context.Context, name string) (io.WriteCloser, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	path := fmt.Sprintf("/scratch/%d-%s", f.n, name)
	return &memFile{store: f, path: path}, path, nil
}

func (f *fakeFiles) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeFiles) Remove(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeFiles) remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

type fakeExporter struct {
	got []*entity.Voucher
}

func (f *fakeExporter) Export(vouchers []*entity.Voucher, w io.Writer) error {
	f.got = vouchers
	_, err := io.WriteString(w, "xlsx")
	return err
}

type fakePreviewer struct{}

func (fakePreviewer) PreviewPNG(pdf []byte, w io.Writer) error {
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		return errors.New("not a pdf")
	}
	_, err := w.Write([]byte("\x89PNG"))
	return err
}

type fakeIdentityProvider struct {
	calls    int
	identity *entity.Identity
	err      error
}

func (f *fakeIdentityProvider) UserInfo(ctx context.Context, bearer string) (*entity.Identity, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*entity.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*entity.Session)}
}

func (f *fakeSessionStore) Get(token string) (*entity.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[token]
	return s, ok
}

func (f *fakeSessionStore) Put(s *entity.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.Token] = s
}

func (f *fakeSessionStore) Delete(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, token)
}
