package userdevice_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punktepass/punktepass/internal/auditlog"
	"github.com/punktepass/punktepass/internal/notify"
	"github.com/punktepass/punktepass/internal/store"
	"github.com/punktepass/punktepass/internal/userdevice"
)

const (
	parentID = int64(1)
	branchID = int64(2)
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.ApprovalRequest
	err  error
}

func (n *recordingNotifier) SendApprovalRequest(_ context.Context, req notify.ApprovalRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, req)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fixture struct {
	svc      *userdevice.Service
	repo     *userdevice.InMemoryRepository
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	admin := "owner@example.com"
	parent := parentID
	stores := store.NewService(store.NewInMemoryRepository(
		&store.Store{ID: parentID, Key: "main", Name: "Cafe Berlin", AdminEmail: &admin},
		&store.Store{ID: branchID, Key: "branch", Name: "Cafe Berlin Mitte", ParentStoreID: &parent},
	))

	f := &fixture{
		repo:     userdevice.NewInMemoryRepository(),
		notifier: &recordingNotifier{},
	}
	f.svc = userdevice.NewService(userdevice.ServiceConfig{
		Repository: f.repo,
		Stores:     stores,
		Notifier:   f.notifier,
		Audit:      auditlog.NewLogger(auditlog.NewInMemoryRepository(), zerolog.Nop()),
		Logger:     zerolog.Nop(),
		MaxDevices: 2,
		PublicURL:  "https://api.example.com/",
	})
	return f
}

func device(fp string) userdevice.RegisterInput {
	return userdevice.RegisterInput{Fingerprint: fp, DeviceName: "Kasse " + fp, UserAgent: "test-agent"}
}

func TestRegister_CapAndIdempotence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, parentID, device("scanner-a"))
	require.NoError(t, err)
	assert.True(t, res.Registered)
	assert.Equal(t, 1, res.DeviceCount)
	assert.Equal(t, 2, res.MaxDevices)

	res, err = f.svc.Register(ctx, parentID, device("scanner-a"))
	require.NoError(t, err)
	assert.True(t, res.AlreadyRegistered)
	assert.False(t, res.Registered)
	assert.Equal(t, 1, res.DeviceCount)
	require.NotNil(t, res.Device.LastUsedAt)

	res, err = f.svc.Register(ctx, parentID, device("scanner-b"))
	require.NoError(t, err)
	assert.True(t, res.Registered)
	assert.Equal(t, 2, res.DeviceCount)

	res, err = f.svc.Register(ctx, parentID, device("scanner-c"))
	require.NoError(t, err)
	assert.True(t, res.LimitReached)
	assert.False(t, res.Registered)
	assert.Equal(t, 2, res.DeviceCount)
	assert.Nil(t, res.Device)

	devices, err := f.svc.List(ctx, parentID)
	require.NoError(t, err)
	assert.Len(t, devices, 2)
}

func TestRegister_InvalidInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), parentID, userdevice.RegisterInput{Fingerprint: "   "})
	assert.ErrorIs(t, err, userdevice.ErrInvalidInput)
}

func TestRegister_UnknownStore(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), 99, device("scanner-a"))
	assert.ErrorIs(t, err, store.ErrStoreNotFound)
}

func TestRegister_ConcurrentRespectsCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = f.svc.Register(ctx, parentID, device(string(rune('a'+i))+"-scanner"))
		}(i)
	}
	wg.Wait()

	devices, err := f.svc.List(ctx, parentID)
	require.NoError(t, err)
	assert.Len(t, devices, 2)
}

func TestBranchStoreUsesParentList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, branchID, device("scanner-a"))
	require.NoError(t, err)

	res, err := f.svc.Register(ctx, parentID, device("scanner-a"))
	require.NoError(t, err)
	assert.True(t, res.AlreadyRegistered)

	_, err = f.svc.Register(ctx, parentID, device("scanner-b"))
	require.NoError(t, err)

	res, err = f.svc.Register(ctx, branchID, device("scanner-c"))
	require.NoError(t, err)
	assert.True(t, res.LimitReached)

	fromBranch, err := f.svc.List(ctx, branchID)
	require.NoError(t, err)
	fromParent, err := f.svc.List(ctx, parentID)
	require.NoError(t, err)
	assert.Equal(t, fromParent, fromBranch)
	for _, d := range fromBranch {
		assert.Equal(t, parentID, d.StoreID)
	}

	req, err := f.svc.RequestAdd(ctx, branchID, device("scanner-c"))
	require.NoError(t, err)
	assert.Equal(t, parentID, req.StoreID)
}

func TestRequestAdd_ApproveOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, fp := range []string{"scanner-a", "scanner-b"} {
		_, err := f.svc.Register(ctx, parentID, device(fp))
		require.NoError(t, err)
	}

	req, err := f.svc.RequestAdd(ctx, parentID, device("scanner-c"))
	require.NoError(t, err)
	assert.Len(t, req.Token, userdevice.TokenLength)
	assert.Equal(t, userdevice.RequestPending, req.Status)

	require.Equal(t, 1, f.notifier.count())
	sent := f.notifier.sent[0]
	assert.Equal(t, "owner@example.com", sent.Recipient)
	assert.Equal(t, "https://api.example.com/v1/user-devices/approve/"+req.Token, sent.ApproveURL)
	assert.Equal(t, "https://api.example.com/v1/user-devices/reject/"+req.Token, sent.RejectURL)

	decision, err := f.svc.Approve(ctx, req.Token, "")
	require.NoError(t, err)
	assert.True(t, decision.Applied)
	assert.Equal(t, userdevice.RequestApproved, decision.Request.Status)

	devices, err := f.svc.List(ctx, parentID)
	require.NoError(t, err)
	assert.Len(t, devices, 3)

	_, err = f.svc.Approve(ctx, req.Token, "")
	assert.ErrorIs(t, err, userdevice.ErrRequestNotFound)
	_, err = f.svc.Reject(ctx, req.Token, "")
	assert.ErrorIs(t, err, userdevice.ErrRequestNotFound)

	devices, err = f.svc.List(ctx, parentID)
	require.NoError(t, err)
	assert.Len(t, devices, 3)

	stored, ok := f.repo.Request(req.Token)
	require.True(t, ok)
	assert.Equal(t, userdevice.RequestApproved, stored.Status)
}

func TestRequestAdd_Reject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.RequestAdd(ctx, parentID, device("scanner-z"))
	require.NoError(t, err)

	decision, err := f.svc.Reject(ctx, req.Token, "admin")
	require.NoError(t, err)
	assert.False(t, decision.Applied)
	assert.Equal(t, userdevice.RequestRejected, decision.Request.Status)

	devices, err := f.svc.List(ctx, parentID)
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestRequestAdd_DuplicatePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestAdd(ctx, parentID, device("scanner-z"))
	require.NoError(t, err)

	_, err = f.svc.RequestAdd(ctx, branchID, device("scanner-z"))
	assert.ErrorIs(t, err, userdevice.ErrRequestPending)
	assert.Equal(t, 1, f.notifier.count())
}

func TestRequestAdd_AlreadyActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, parentID, device("scanner-a"))
	require.NoError(t, err)

	_, err = f.svc.RequestAdd(ctx, parentID, device("scanner-a"))
	assert.ErrorIs(t, err, userdevice.ErrDeviceExists)
}

func TestRequestAdd_NotifierFailureIsNotSurfaced(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")

	req, err := f.svc.RequestAdd(context.Background(), parentID, device("scanner-z"))
	require.NoError(t, err)
	assert.Equal(t, userdevice.RequestPending, req.Status)
	assert.Equal(t, 1, f.notifier.count())
}

func TestRequestRemoval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, parentID, device("scanner-a"))
	require.NoError(t, err)

	_, err = f.svc.RequestRemoval(ctx, parentID, 999)
	assert.ErrorIs(t, err, userdevice.ErrDeviceNotFound)

	req, err := f.svc.RequestRemoval(ctx, branchID, res.Device.ID)
	require.NoError(t, err)
	assert.Equal(t, userdevice.RequestRemove, req.Type)

	_, err = f.svc.RequestRemoval(ctx, parentID, res.Device.ID)
	assert.ErrorIs(t, err, userdevice.ErrRequestPending)

	decision, err := f.svc.Approve(ctx, req.Token, "")
	require.NoError(t, err)
	assert.True(t, decision.Applied)

	devices, err := f.svc.List(ctx, parentID)
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestRequestRemoval_Reject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, parentID, device("scanner-a"))
	require.NoError(t, err)

	req, err := f.svc.RequestRemoval(ctx, parentID, res.Device.ID)
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, req.Token, "")
	require.NoError(t, err)

	devices, err := f.svc.List(ctx, parentID)
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}

func TestApprove_UnknownToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Approve(context.Background(), "short", "")
	assert.ErrorIs(t, err, userdevice.ErrRequestNotFound)

	_, err = f.svc.Approve(context.Background(), "0123456789abcdef0123456789abcdef", "")
	assert.ErrorIs(t, err, userdevice.ErrRequestNotFound)
}

func TestVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.svc.Verify(ctx, branchID, "scanner-a")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.Register(ctx, parentID, device("scanner-a"))
	require.NoError(t, err)

	ok, err = f.svc.Verify(ctx, branchID, "scanner-a")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.svc.Verify(ctx, branchID, "")
	assert.ErrorIs(t, err, userdevice.ErrInvalidInput)
}

func TestNewToken(t *testing.T) {
	a, err := userdevice.NewToken()
	require.NoError(t, err)
	b, err := userdevice.NewToken()
	require.NoError(t, err)

	assert.Len(t, a, userdevice.TokenLength)
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^[0-9a-f]{32}$`, a)
}
