package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"users_sheet/internal/common"
	"users_sheet/internal/domain/model"
	"users_sheet/internal/platform/logging"
	"users_sheet/internal/platform/metrics"

	"github.com/google/uuid"
)

// events records the order of writes across fakes.
type events struct{ log []string }

func (e *events) add(s string) { e.log = append(e.log, s) }

type storedAccount struct {
	account  model.Account
	password string
}

type fakeAccounts struct {
	ev        *events
	byID      map[string]*storedAccount
	writes    int
	createErr error
	updateErr error
	deleteErr map[string]error // by username
	listErr   error
}

func newFakeAccounts(ev *events) *fakeAccounts {
	return &fakeAccounts{ev: ev, byID: map[string]*storedAccount{}, deleteErr: map[string]error{}}
}

func (f *fakeAccounts) find(match func(model.Account) bool) (*model.Account, error) {
	for _, s := range f.byID {
		if match(s.account) {
			a := s.account
			return &a, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeAccounts) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	return f.find(func(a model.Account) bool { return strings.EqualFold(a.Email, email) })
}

func (f *fakeAccounts) FindByUsername(_ context.Context, username string) (*model.Account, error) {
	return f.find(func(a model.Account) bool { return strings.EqualFold(a.Username, username) })
}

func (f *fakeAccounts) Create(_ context.Context, account *model.Account, password string) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, s := range f.byID {
		if strings.EqualFold(s.account.Username, account.Username) {
			return common.ErrDuplicateUsername
		}
		if strings.EqualFold(s.account.Email, account.Email) {
			return common.ErrDuplicateEmail
		}
	}
	f.writes++
	f.ev.add("create:" + account.Username)
	a := *account
	a.IsActive = false
	f.byID[account.ID] = &storedAccount{account: a, password: password}
	return nil
}

func (f *fakeAccounts) VerifyPassword(_ context.Context, account *model.Account, password string) (bool, error) {
	s, ok := f.byID[account.ID]
	if !ok {
		return false, common.ErrNotFound
	}
	return s.password == password, nil
}

func (f *fakeAccounts) Update(_ context.Context, account *model.Account) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	s, ok := f.byID[account.ID]
	if !ok {
		return common.ErrNotFound
	}
	f.writes++
	f.ev.add("update:" + account.Username)
	s.account.LastLoginAt = account.LastLoginAt
	return nil
}

func (f *fakeAccounts) Delete(_ context.Context, account *model.Account) error {
	if err := f.deleteErr[account.Username]; err != nil {
		return err
	}
	f.writes++
	f.ev.add("delete:" + account.Username)
	delete(f.byID, account.ID)
	return nil
}

func (f *fakeAccounts) ListAll(_ context.Context) ([]model.Account, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Account, 0, len(f.byID))
	for _, s := range f.byID {
		out = append(out, s.account)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.Before(out[j].RegisteredAt)
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}

type fakeRoles struct {
	ev        *events
	accounts  *fakeAccounts
	members   map[string]map[string]bool // role -> account id
	addErr    map[string]error           // by account id
	removeErr map[string]error
	isErr     error
}

func newFakeRoles(ev *events, accounts *fakeAccounts) *fakeRoles {
	return &fakeRoles{
		ev:        ev,
		accounts:  accounts,
		members:   map[string]map[string]bool{model.ActiveRole: {}},
		addErr:    map[string]error{},
		removeErr: map[string]error{},
	}
}

func (f *fakeRoles) IsMember(_ context.Context, accountID, roleName string) (bool, error) {
	if f.isErr != nil {
		return false, f.isErr
	}
	if _, ok := f.accounts.byID[accountID]; !ok {
		return false, nil
	}
	return f.members[roleName][accountID], nil
}

func (f *fakeRoles) AddMember(_ context.Context, accountID, roleName string) error {
	if err := f.addErr[accountID]; err != nil {
		return err
	}
	f.ev.add("grant:" + accountID)
	f.members[roleName][accountID] = true
	f.sync(accountID, roleName)
	return nil
}

func (f *fakeRoles) RemoveMember(_ context.Context, accountID, roleName string) error {
	if err := f.removeErr[accountID]; err != nil {
		return err
	}
	f.ev.add("revoke-role:" + accountID)
	delete(f.members[roleName], accountID)
	f.sync(accountID, roleName)
	return nil
}

func (f *fakeRoles) CreateRole(_ context.Context, name string) error {
	if f.members[name] == nil {
		f.members[name] = map[string]bool{}
	}
	return nil
}

// sync keeps the stored IsActive projection in step with membership, as the SQL store does on read.
func (f *fakeRoles) sync(accountID, roleName string) {
	if roleName != model.ActiveRole {
		return
	}
	if s, ok := f.accounts.byID[accountID]; ok {
		s.account.IsActive = f.members[roleName][accountID]
	}
}

type fakeSession struct {
	id       string
	username string
}

type fakeSessions struct {
	ev        *events
	current   *fakeSession
	issued    int
	revoked   int
	issueErr  error
	revokeErr error
}

func (f *fakeSessions) Issue(_ context.Context, account *model.Account) error {
	if f.issueErr != nil {
		return f.issueErr
	}
	f.issued++
	f.ev.add("issue:" + account.Username)
	f.current = &fakeSession{id: uuid.NewString(), username: account.Username}
	return nil
}

func (f *fakeSessions) RevokeCurrent(context.Context) error {
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.revoked++
	f.ev.add("signout")
	f.current = nil
	return nil
}

func (f *fakeSessions) CurrentUsername(context.Context) (string, bool) {
	if f.current == nil {
		return "", false
	}
	return f.current.username, true
}

func (f *fakeSessions) CurrentSessionID(context.Context) (string, bool) {
	if f.current == nil {
		return "", false
	}
	return f.current.id, true
}

type fakeSelectionStore struct {
	snapshots map[string][]string
	err       error
}

func (f *fakeSelectionStore) Save(_ context.Context, sessionID string, usernames []string) error {
	if f.err != nil {
		return f.err
	}
	f.snapshots[sessionID] = append([]string(nil), usernames...)
	return nil
}

func (f *fakeSelectionStore) Take(_ context.Context, sessionID string) ([]string, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	v, ok := f.snapshots[sessionID]
	delete(f.snapshots, sessionID)
	return v, ok, nil
}

var errStoreDown = errors.New("store unavailable")

type fixture struct {
	ev        *events
	accounts  *fakeAccounts
	roles     *fakeRoles
	sessions  *fakeSessions
	selection *fakeSelectionStore
	auth      *AuthService
	sel       *SelectionService
	admin     *AdminService
	clock     time.Time
}

func newFixture() *fixture {
	ev := &events{}
	accounts := newFakeAccounts(ev)
	roles := newFakeRoles(ev, accounts)
	sessions := &fakeSessions{ev: ev}
	store := &fakeSelectionStore{snapshots: map[string][]string{}}
	log := logging.Discard()
	m := metrics.NewNop()

	f := &fixture{
		ev:        ev,
		accounts:  accounts,
		roles:     roles,
		sessions:  sessions,
		selection: store,
		clock:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.auth = NewAuthService(accounts, roles, sessions, Paths{Landing: "/", SignIn: "/account/signin"}, log, m)
	f.auth.now = func() time.Time { return f.clock }
	f.sel = NewSelectionService(accounts, sessions, store, log)
	f.admin = NewAdminService(accounts, roles, sessions, f.sel, log, m)
	return f
}

// seed registers an active account directly in the fakes, one minute apart.
func (f *fixture) seed(username string) model.Account {
	f.clock = f.clock.Add(time.Minute)
	a := model.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@x.com",
		RegisteredAt: f.clock,
		LastLoginAt:  f.clock,
		IsActive:     true,
	}
	f.accounts.byID[a.ID] = &storedAccount{account: a, password: "pw-" + username}
	f.roles.members[model.ActiveRole][a.ID] = true
	return a
}

// signInAs gives the fixture a live session for username without going through SignIn.
func (f *fixture) signInAs(username string) {
	f.sessions.current = &fakeSession{id: uuid.NewString(), username: username}
}

func (f *fixture) account(username string) (model.Account, bool) {
	for _, s := range f.accounts.byID {
		if s.account.Username == username {
			return s.account, true
		}
	}
	return model.Account{}, false
}

func (f *fixture) active(username string) bool {
	a, ok := f.account(username)
	return ok && f.roles.members[model.ActiveRole][a.ID]
}
