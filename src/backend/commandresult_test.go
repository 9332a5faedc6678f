package backend

import "testing"

func TestCommandResultSuccess(t *testing.T) {
	stream := make(chan LogItem, 3)
	stream <- LogItem{Stream: "Step 1/2 : FROM fedora\n"}
	stream <- LogItem{Stream: "Step 2/2 : RUN true\n"}
	stream <- LogItem{Stream: "Successfully built abc123\n"}
	close(stream)

	result := Wait(stream)
	if result.IsFailed() {
		t.Fatalf("IsFailed = true, error %q", result.Error())
	}
	if len(result.Logs()) != 3 {
		t.Errorf("logs = %v", result.Logs())
	}
}

func TestCommandResultError(t *testing.T) {
	stream := make(chan LogItem, 2)
	stream <- LogItem{Stream: "Step 1/1 : RUN false\n"}
	stream <- LogItem{
		Error:       "The command '/bin/sh -c false' returned a non-zero code: 1",
		ErrorDetail: &ErrorDetail{Code: 1, Message: "non-zero code: 1"},
	}
	close(stream)

	result := Wait(stream)
	if !result.IsFailed() {
		t.Fatal("IsFailed = false for stream with error item")
	}
	if result.Error() == "" {
		t.Error("Error() empty")
	}
}

func TestCommandResultErrorDetailOnly(t *testing.T) {
	result := &CommandResult{}
	result.ParseItem(LogItem{ErrorDetail: &ErrorDetail{Message: "daemon exploded"}})

	if !result.IsFailed() {
		t.Fatal("IsFailed = false with errorDetail set")
	}
	if result.Error() != "daemon exploded" {
		t.Errorf("Error() = %q", result.Error())
	}
}

func TestCommandResultMultilineStream(t *testing.T) {
	result := &CommandResult{}
	result.ParseItem(LogItem{Stream: "one\ntwo\n\nthree\n"})

	want := []string{"one", "two", "three"}
	got := result.Logs()
	if len(got) != len(want) {
		t.Fatalf("logs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("logs[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
