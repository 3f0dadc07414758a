package attest

// Action identifies a callback button the chat adapter renders; pressing it
// comes back as a Confirm or Remove event.
type Action string

const (
	ActionConfirm Action = "attest_confirm"
	ActionChange  Action = "attest_change"
)

type Button struct {
	Label  string
	URL    string // link button when set
	Action Action // callback button otherwise
}

type Message struct {
	Text    string
	HTML    bool
	Buttons []Button
}

// Reply is the ordered list of messages an event handler wants sent back to
// the originating chat. Empty reply means nothing to say.
type Reply struct {
	Messages []Message
}

func (r *Reply) text(text string) {
	r.Messages = append(r.Messages, Message{Text: text})
}

func (r *Reply) html(text string) {
	r.Messages = append(r.Messages, Message{Text: text, HTML: true})
}

func (r *Reply) withButtons(text string, buttons ...Button) {
	r.Messages = append(r.Messages, Message{Text: text, Buttons: buttons})
}
