package queue

import (
	"testing"
	"time"

	"github.com/strandfield/cppscanner-go/internal/model"
)

func TestWorkQueueDrains(t *testing.T) {
	q := NewWorkQueue([]ToolInvocation{
		{Filename: "a.cpp"},
		{Filename: "b.cpp"},
	})

	var got []string
	for {
		item, ok := q.Next()
		if !ok {
			break
		}
		got = append(got, item.Filename)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
}

func TestWorkQueueEmpty(t *testing.T) {
	q := NewWorkQueue(nil)
	if _, ok := q.Next(); ok {
		t.Fatal("expected an empty queue to report ok=false immediately")
	}
}

func TestResultQueueReadWrite(t *testing.T) {
	q := NewResultQueue(4)
	q.Write(&model.TranslationUnitIndex{MainFileID: model.FileID(1)})

	idx, ok := q.Read()
	if !ok || idx.MainFileID != model.FileID(1) {
		t.Fatal("expected to read back the written index")
	}
}

func TestResultQueueTryReadTimeout(t *testing.T) {
	q := NewResultQueue(1)
	start := time.Now()
	_, ok := q.TryRead(20 * time.Millisecond)
	if ok {
		t.Fatal("expected timeout on an empty queue")
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("returned too early: %v", elapsed)
	}
}

func TestResultQueueDrainsAfterClose(t *testing.T) {
	q := NewResultQueue(4)
	q.Write(&model.TranslationUnitIndex{MainFileID: model.FileID(1)})
	q.Write(&model.TranslationUnitIndex{MainFileID: model.FileID(2)})
	q.Close()

	count := 0
	for {
		_, ok := q.Read()
		if !ok {
			break
		}
		count++
	}
	if count != 2 {
		t.Fatalf("expected to drain 2 results after close, got %d", count)
	}
}
