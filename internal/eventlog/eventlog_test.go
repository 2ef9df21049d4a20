package eventlog

import "testing"

func single(t *testing.T, l *List) Event {
	t.Helper()
	ev := l.Drain()
	if len(ev) != 1 {
		t.Fatalf("want 1 event, got %d: %+v", len(ev), ev)
	}
	return ev[0]
}

func TestCoalesceCreateThenUpdate(t *testing.T) {
	l := New()
	l.Create("/a", false, 1, "")
	l.Update("/a", false, 1, "")
	ev := single(t, l)
	if ev.Type() != Create {
		t.Fatalf("want Create, got %s", ev.Type())
	}
}

func TestCoalesceDeleteThenCreate(t *testing.T) {
	l := New()
	l.Remove("/a", false, 1, "")
	l.Create("/a", false, 1, "")
	ev := single(t, l)
	if ev.Type() != Update {
		t.Fatalf("want Update, got %s", ev.Type())
	}
}

func TestCoalesceCreateThenDeleteCancels(t *testing.T) {
	l := New()
	l.Create("/a", false, 1, "")
	l.Remove("/a", false, 1, "")
	if l.Len() != 0 {
		t.Fatalf("want 0 events, got %d", l.Len())
	}
}

func TestCoalesceCreateThenRename(t *testing.T) {
	l := New()
	l.Create("/a", false, 1, "")
	l.Rename("/a", "/b", false, 1, "")
	ev := single(t, l)
	if ev.Path != "/b" || ev.Type() != Create {
		t.Fatalf("want Create /b, got %+v (%s)", ev, ev.Type())
	}
}

func TestCoalesceRenameChain(t *testing.T) {
	l := New()
	l.Create("/a", false, 1, "")
	l.Drain()
	l.Rename("/a", "/b", false, 1, "")
	l.Rename("/b", "/c", false, 1, "")
	l.Rename("/c", "/d", false, 1, "")
	ev := single(t, l)
	if ev.Type() != Rename || ev.OldPath != "/a" || ev.Path != "/d" {
		t.Fatalf("want rename /a -> /d, got %+v (%s)", ev, ev.Type())
	}
}

func TestCoalesceUpdateManyTimes(t *testing.T) {
	l := New()
	for range 10 {
		l.Update("/a", false, 1, "")
	}
	ev := single(t, l)
	if ev.Type() != Update {
		t.Fatalf("want Update, got %s", ev.Type())
	}
}

func TestCoalesceUpdateThenDelete(t *testing.T) {
	l := New()
	l.Update("/a", false, 1, "")
	l.Remove("/a", false, 1, "")
	ev := single(t, l)
	if ev.Type() != Delete {
		t.Fatalf("want Delete, got %s", ev.Type())
	}
}

func TestRenameOverwritesLiveTarget(t *testing.T) {
	l := New()
	l.Update("/b", false, 2, "")
	l.Rename("/a", "/b", false, 1, "")
	ev := l.Drain()
	// /b's prior update is overwritten (marked deleted then replaced by
	// the rename record), so only the rename survives.
	if len(ev) != 1 {
		t.Fatalf("want 1 event, got %d: %+v", len(ev), ev)
	}
	if ev[0].Path != "/b" || ev[0].Type() != Rename || ev[0].OldPath != "/a" {
		t.Fatalf("want rename /a -> /b, got %+v (%s)", ev[0], ev[0].Type())
	}
}

func TestRenameOverwritesCreatedTarget(t *testing.T) {
	l := New()
	l.Create("/b", false, 2, "")
	l.Rename("/a", "/b", false, 1, "")
	ev := single(t, l)
	if ev.Path != "/b" || ev.Type() != Rename || ev.OldPath != "/a" {
		t.Fatalf("want rename /a -> /b, got %+v (%s)", ev, ev.Type())
	}
}

func TestRenameOntoTombstoneBecomesRename(t *testing.T) {
	l := New()
	l.Remove("/b", false, 2, "")
	l.Rename("/a", "/b", false, 1, "")
	ev := single(t, l)
	if ev.Path != "/b" || ev.OldPath != "/a" || ev.Type() != Rename {
		t.Fatalf("want rename /a -> /b, got %+v (%s)", ev, ev.Type())
	}
}

func TestAtMostOneEventPerPath(t *testing.T) {
	l := New()
	l.Create("/a", false, 1, "")
	l.Update("/a", false, 1, "")
	l.Update("/a", false, 1, "")
	l.Rename("/a", "/b", false, 1, "")
	l.Update("/b", false, 1, "")
	if l.Len() != 1 {
		t.Fatalf("want 1 event, got %d", l.Len())
	}
}

func TestRenameCarriesIdentityWhenSentinel(t *testing.T) {
	l := New()
	l.Create("/a", false, 42, "fid-1")
	l.Rename("/a", "/b", false, 0, "") // sentinel ino/fileID: carry forward
	ev := single(t, l)
	if ev.Ino != 42 || ev.FileID != "fid-1" {
		t.Fatalf("want carried identity, got ino=%d fileID=%q", ev.Ino, ev.FileID)
	}
}
