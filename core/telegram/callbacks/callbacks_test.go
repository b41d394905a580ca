package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	"github.com/DevTeady/EmiliaHikari/core/telegram/teletest"
)

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		name         string
		cb           *tele.Callback
		unique, data string
	}{
		{name: "nil", cb: nil},
		{name: "raw", cb: &tele.Callback{Data: Data("rm_warn", "42")}, unique: "rm_warn", data: "42"},
		{name: "no payload", cb: &tele.Callback{Data: Data("noop", "")}, unique: "noop"},
		{name: "already split", cb: &tele.Callback{Unique: "rm_warn", Data: "7"}, unique: "rm_warn", data: "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, d := ParseCallbackData(tt.cb)
			if u != tt.unique || d != tt.data {
				t.Fatalf("got (%q, %q), want (%q, %q)", u, d, tt.unique, tt.data)
			}
		})
	}
}

func TestPayloadAndAnswer(t *testing.T) {
	c := teletest.NewCallback(&tele.Chat{ID: -1}, &tele.User{ID: 1}, "", Data("rm_warn", "123"))
	id, err := PayloadInt64(c)
	if err != nil || id != 123 {
		t.Fatalf("PayloadInt64 = %d, %v", id, err)
	}
	if Answered(c) {
		t.Fatal("fresh callback must not be answered")
	}
	if err := Answer(c, &tele.CallbackResponse{Text: "done"}); err != nil {
		t.Fatal(err)
	}
	if !Answered(c) || len(c.Responses()) != 1 {
		t.Fatalf("expected a single recorded answer")
	}
}
