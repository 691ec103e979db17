package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/peres84/AdFlowEcomm/internal/domain"
	pkgerrors "github.com/peres84/AdFlowEcomm/internal/pkg/errors"
	"github.com/peres84/AdFlowEcomm/internal/pkg/logger"
)

func TestSessionLifecycle(t *testing.T) {
	svc := NewSessionService(logger.NewNop(), time.Hour)

	sess := svc.Create()
	if sess.ID == uuid.Nil {
		t.Fatalf("created session has nil id")
	}
	if !sess.ExpiresAt.After(sess.CreatedAt) {
		t.Fatalf("expiry %v not after creation %v", sess.ExpiresAt, sess.CreatedAt)
	}

	got, err := svc.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != sess.ID {
		t.Fatalf("got session %s, want %s", got.ID, sess.ID)
	}

	if !svc.Delete(sess.ID) {
		t.Fatalf("Delete returned false for live session")
	}
	if svc.Delete(sess.ID) {
		t.Fatalf("Delete returned true for removed session")
	}
	if _, err := svc.Get(sess.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("Get after delete err=%v, want ErrNotFound", err)
	}
}

func TestSessionGetUnknown(t *testing.T) {
	svc := NewSessionService(logger.NewNop(), time.Hour)
	if _, err := svc.Get(uuid.New()); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	svc := NewSessionService(logger.NewNop(), 10*time.Millisecond)

	sess := svc.Create()
	time.Sleep(20 * time.Millisecond)

	if _, err := svc.Get(sess.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expired session still readable: %v", err)
	}
	if svc.Count() != 0 {
		t.Fatalf("expired session not evicted on access")
	}
}

func TestSessionCleanupExpiredFiresHook(t *testing.T) {
	svc := NewSessionService(logger.NewNop(), 10*time.Millisecond)

	var hooked []uuid.UUID
	svc.ExpireHook(func(s *domain.Session) {
		hooked = append(hooked, s.ID)
	})

	a := svc.Create()
	b := svc.Create()
	time.Sleep(20 * time.Millisecond)

	if n := svc.CleanupExpired(); n != 2 {
		t.Fatalf("CleanupExpired=%d, want 2", n)
	}
	if len(hooked) != 2 {
		t.Fatalf("expire hook fired %d times, want 2", len(hooked))
	}
	seen := map[uuid.UUID]bool{a.ID: false, b.ID: false}
	for _, id := range hooked {
		seen[id] = true
	}
	for id, ok := range seen {
		if !ok {
			t.Fatalf("hook never saw session %s", id)
		}
	}
}

func TestSessionSnapshotsDoNotAliasStore(t *testing.T) {
	svc := NewSessionService(logger.NewNop(), time.Hour)
	sess := svc.Create()

	if _, err := svc.Update(sess.ID, func(s *domain.Session) error {
		s.SceneDescriptions = []domain.SceneDescription{
			{Scenario: domain.ScenarioHook, VisualDescription: "original"},
		}
		return nil
	}); err != nil {
		t.Fatalf("seed Update: %v", err)
	}

	snapshot, err := svc.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	// In-place element edits by an applier must not reach the snapshot.
	if _, err := svc.Update(sess.ID, func(s *domain.Session) error {
		s.SceneDescriptions[0].VisualDescription = "revised"
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := snapshot.SceneDescriptions[0].VisualDescription; got != "original" {
		t.Fatalf("snapshot mutated through store: %q", got)
	}

	// And edits on a snapshot must not reach the store.
	snapshot.SceneDescriptions[0].VisualDescription = "clobbered"
	stored, err := svc.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := stored.SceneDescriptions[0].VisualDescription; got != "revised" {
		t.Fatalf("stored session mutated through snapshot: %q", got)
	}
}

// Run with -race: a reader holding a Get snapshot must never observe writes
// made by concurrent Update appliers.
func TestSessionConcurrentSnapshotReads(t *testing.T) {
	svc := NewSessionService(logger.NewNop(), time.Hour)
	sess := svc.Create()

	if _, err := svc.Update(sess.ID, func(s *domain.Session) error {
		s.SceneDescriptions = []domain.SceneDescription{
			{Scenario: domain.ScenarioHook, VisualDescription: "v0"},
		}
		return nil
	}); err != nil {
		t.Fatalf("seed Update: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_, err := svc.Update(sess.ID, func(s *domain.Session) error {
				s.SceneDescriptions[0].VisualDescription = "v" + string(rune('0'+i%10))
				return nil
			})
			if err != nil {
				t.Errorf("Update: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 100; i++ {
		snap, err := svc.Get(sess.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		_ = snap.SceneDescriptions[0].VisualDescription
	}
	<-done
}

func TestSessionUpdateIsAtomic(t *testing.T) {
	svc := NewSessionService(logger.NewNop(), time.Hour)
	sess := svc.Create()

	_, err := svc.Update(sess.ID, func(s *domain.Session) error {
		s.Form = &domain.FormData{ProductName: "oops"}
		return errors.New("validation failed")
	})
	if err == nil {
		t.Fatalf("Update should surface apply error")
	}

	got, err := svc.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Form != nil {
		t.Fatalf("failed update leaked into stored session: %+v", got.Form)
	}

	updated, err := svc.Update(sess.ID, func(s *domain.Session) error {
		s.Form = &domain.FormData{ProductName: "AquaFlow"}
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Form == nil || updated.Form.ProductName != "AquaFlow" {
		t.Fatalf("update not applied: %+v", updated.Form)
	}
}
