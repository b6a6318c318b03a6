package oracle

import (
	"context"
	"errors"
	"testing"
)

func TestMockClientScriptedResponses(t *testing.T) {
	mock := NewMockClientWithContent("first", "second")
	ctx := context.Background()

	resp, err := mock.Complete(ctx, NewRequest([]Message{NewUserMessage("a")}))
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if resp.Content != "first" {
		t.Errorf("expected first, got %q", resp.Content)
	}

	resp, err = mock.Complete(ctx, NewRequest([]Message{NewUserMessage("b")}))
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if resp.Content != "second" {
		t.Errorf("expected second, got %q", resp.Content)
	}

	if _, err := mock.Complete(ctx, NewRequest([]Message{NewUserMessage("c")})); err == nil {
		t.Error("expected error after scripted responses exhausted")
	}
}

func TestMockClientErrors(t *testing.T) {
	scripted := errors.New("boom")
	mock := NewMockClient([]Response{{Content: "after"}}, []error{scripted})

	_, err := mock.Complete(context.Background(), NewRequest([]Message{NewUserMessage("a")}))
	if !errors.Is(err, scripted) {
		t.Fatalf("expected scripted error, got %v", err)
	}

	resp, err := mock.Complete(context.Background(), NewRequest([]Message{NewUserMessage("b")}))
	if err != nil {
		t.Fatalf("call after error failed: %v", err)
	}
	if resp.Content != "after" {
		t.Errorf("expected after, got %q", resp.Content)
	}
}

func TestMockClientRecordsRequests(t *testing.T) {
	mock := NewMockClientWithContent("one", "two")
	ctx := context.Background()

	_, _ = mock.Complete(ctx, NewRequest([]Message{NewUserMessage("hello")}))
	_, _ = mock.Complete(ctx, NewRequest([]Message{NewUserMessage("world")}))

	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.CallCount())
	}

	last, ok := mock.LastRequest()
	if !ok {
		t.Fatal("expected a last request")
	}
	if last.Messages[len(last.Messages)-1].Content != "world" {
		t.Errorf("unexpected last request: %+v", last)
	}

	all := mock.Requests()
	if len(all) != 2 || all[0].Messages[0].Content != "hello" {
		t.Errorf("unexpected recorded requests: %+v", all)
	}
}

func TestMockClientCompleteFunc(t *testing.T) {
	mock := NewMockClientWithContent("unused")
	mock.CompleteFunc = func(_ context.Context, in Request) (Response, error) {
		return Response{Content: "override:" + in.Messages[0].Content}, nil
	}

	resp, err := mock.Complete(context.Background(), NewRequest([]Message{NewUserMessage("x")}))
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Content != "override:x" {
		t.Errorf("expected override:x, got %q", resp.Content)
	}
	if mock.CallCount() != 1 {
		t.Errorf("override calls should still be recorded, got %d", mock.CallCount())
	}
}
