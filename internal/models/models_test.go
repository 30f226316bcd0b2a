package models

import (
	"sync"
	"testing"
	"time"

	"github.com/rflorenc/vm-migration-console/internal/kube"
	"github.com/rflorenc/vm-migration-console/internal/wizard"
)

func TestJobLifecycle(t *testing.T) {
	store := NewJobStore()
	job := store.Create("plan-create", "plan-a")
	if job.ID == "" {
		t.Fatal("Create did not assign an ID")
	}
	if job.State() != JobRunning {
		t.Fatalf("new job status = %q, want running", job.State())
	}

	job.AppendLog("one")
	job.AppendLog("two")
	if got := job.LogsSince(1); len(got) != 1 || got[0] != "two" {
		t.Errorf("LogsSince(1) = %v", got)
	}
	if got := job.LogsSince(5); got != nil {
		t.Errorf("LogsSince(5) = %v, want nil", got)
	}

	job.Complete("plan-a")
	if !job.Finished() || job.State() != JobCompleted {
		t.Errorf("status after Complete = %q", job.State())
	}
	if job.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}
	if job.Context().Err() == nil {
		t.Error("job context should be done after completion")
	}

	// A finished job keeps its first outcome.
	job.Fail("late")
	if job.State() != JobCompleted || job.Error != "" {
		t.Errorf("Fail after Complete changed job: %q %q", job.State(), job.Error)
	}
	if job.Cancel() {
		t.Error("Cancel on a finished job should report false")
	}
}

func TestJobCancel(t *testing.T) {
	job := NewJobStore().Create("plan-update", "plan-a")
	if !job.Cancel() {
		t.Fatal("Cancel on a running job should report true")
	}
	if job.State() != JobCancelled {
		t.Errorf("status = %q, want cancelled", job.State())
	}
	select {
	case <-job.Context().Done():
	default:
		t.Error("context not cancelled")
	}

	// a submission finishing after the cancel does not overwrite it
	job.Complete("plan-a")
	if job.State() != JobCancelled {
		t.Errorf("status after late Complete = %q, want cancelled", job.State())
	}
	if job.Result != nil {
		t.Errorf("cancelled job has result %v", job.Result)
	}
}

func TestJobSnapshot_Concurrent(t *testing.T) {
	job := NewJobStore().Create("plan-create", "plan-a")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job.AppendLog("line")
			_ = job.Snapshot()
		}()
	}
	wg.Wait()
	if got := len(job.Snapshot().Output); got != 10 {
		t.Errorf("snapshot has %d lines, want 10", got)
	}
}

func TestJobStore_ListMostRecentFirst(t *testing.T) {
	store := NewJobStore()
	first := store.Create("plan-create", "a")
	second := store.Create("plan-create", "b")
	first.StartedAt = time.Now().Add(-time.Minute)

	list := store.List()
	if len(list) != 2 {
		t.Fatalf("List() returned %d jobs, want 2", len(list))
	}
	if list[0].ID != second.ID {
		t.Errorf("List()[0] = %s, want %s", list[0].Target, second.Target)
	}
	if store.Get("nonexistent") != nil {
		t.Error("Get(nonexistent) should return nil")
	}
}

func TestSessionStore_CRUD(t *testing.T) {
	store := NewSessionStore()

	created := store.Create("openshift-migration", nil)
	if created.ID == "" {
		t.Fatal("Create did not assign an ID")
	}
	editing := store.Create("openshift-migration", kube.NewPlan("plantest-1", "openshift-migration"))
	if editing.Editing() == nil {
		t.Error("edit session lost its plan")
	}

	if got := store.Get(created.ID); got != created {
		t.Errorf("Get(%s) = %v", created.ID, got)
	}
	if store.Get("nonexistent") != nil {
		t.Error("Get(nonexistent) should return nil")
	}
	if got := len(store.List()); got != 2 {
		t.Errorf("List() returned %d sessions, want 2", got)
	}

	if !store.Delete(created.ID) {
		t.Error("Delete should report true")
	}
	if store.Delete(created.ID) {
		t.Error("second Delete should report false")
	}
}

func TestSessionStore_Expire(t *testing.T) {
	store := NewSessionStore()
	idle := store.Create("ns", nil)
	active := store.Create("ns", nil)

	time.Sleep(20 * time.Millisecond)
	if err := active.Update(func(*wizard.Form) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if !active.LastAccess().After(active.CreatedAt) {
		t.Fatal("Update did not record an access")
	}

	// Past the TTL counted from creation, but not from the last edit.
	now := active.CreatedAt.Add(time.Hour + 10*time.Millisecond)
	if n := store.Expire(now, time.Hour); n != 1 {
		t.Errorf("Expire removed %d sessions, want 1", n)
	}
	if store.Get(idle.ID) != nil {
		t.Error("idle session still present")
	}
	if store.Get(active.ID) == nil {
		t.Error("active session removed")
	}

	if n := store.Expire(active.LastAccess().Add(time.Hour+time.Millisecond), time.Hour); n != 1 {
		t.Errorf("Expire removed %d sessions once active went idle, want 1", n)
	}
}
