package event

import (
	"context"
	"errors"
	"testing"
)

type recordingSender struct {
	texts  []string
	images []string
	fail   bool
}

func (r *recordingSender) SendText(_ context.Context, target Target, text string) error {
	if r.fail {
		return errors.New("down")
	}
	r.texts = append(r.texts, target.String()+" "+text)
	return nil
}

func (r *recordingSender) SendImage(_ context.Context, target Target, url string) error {
	r.images = append(r.images, target.String()+" "+url)
	return nil
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		ok   bool
		name string
		args string
	}{
		{"/weather Paris", true, "weather", "Paris"},
		{"!ping", true, "ping", ""},
		{".echo  a b ", true, "echo", "a b"},
		{"hello", false, "", ""},
		{"/", false, "", ""},
		{"/ x", false, "", ""},
	}
	for _, tc := range cases {
		cmd, ok := ParseCommand(tc.in)
		if ok != tc.ok || cmd.Name != tc.name || cmd.Args != tc.args {
			t.Errorf("ParseCommand(%q) = %+v, %v; want name=%q args=%q ok=%v", tc.in, cmd, ok, tc.name, tc.args, tc.ok)
		}
	}
}

func TestSessionKeyAndOrigin(t *testing.T) {
	gid := int64(42)
	priv := New(MessageTypePrivate, 7, nil, "hi", nil)
	grp := New(MessageTypeGroup, 7, &gid, "hi", nil)

	if priv.SessionKey() != "user:7" {
		t.Errorf("private session key = %q", priv.SessionKey())
	}
	if grp.SessionKey() != "group:42:7" {
		t.Errorf("group session key = %q", grp.SessionKey())
	}
	if o := grp.Origin(); o.Type != MessageTypeGroup || o.ID != 42 {
		t.Errorf("group origin = %+v", o)
	}
	if priv.ID == "" || priv.ID == grp.ID {
		t.Errorf("expected distinct event ids, got %q and %q", priv.ID, grp.ID)
	}
}

func TestApplyDeliversInOrderAndCollectsErrors(t *testing.T) {
	s := &recordingSender{}
	ev := New(MessageTypePrivate, 1, nil, "x", s)

	err := ev.Apply(context.Background(), []Action{
		Reply("one"),
		Image("http://img/1.png"),
		SendTo("group", 9, "two"),
		{Type: "bogus"},
	})
	if err == nil {
		t.Fatal("expected error for unknown action type")
	}
	want := []string{"private:1 one", "group:9 two"}
	if len(s.texts) != len(want) {
		t.Fatalf("texts = %v, want %v", s.texts, want)
	}
	for i := range want {
		if s.texts[i] != want[i] {
			t.Errorf("texts[%d] = %q, want %q", i, s.texts[i], want[i])
		}
	}
	if len(s.images) != 1 || s.images[0] != "private:1 http://img/1.png" {
		t.Errorf("images = %v", s.images)
	}
}

func TestReplyWithoutSender(t *testing.T) {
	ev := New(MessageTypePrivate, 1, nil, "x", nil)
	if err := ev.Reply(context.Background(), "hi"); !errors.Is(err, ErrNoSender) {
		t.Fatalf("Reply err = %v, want ErrNoSender", err)
	}
}
