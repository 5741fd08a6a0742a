package chat

// Bubble describes one message to render.
type Bubble struct {
	Role Role
	Text string

	// Avatar asks the surface to decorate the bubble with the assistant
	// avatar.
	Avatar bool
}

// BubbleHandle updates a bubble that is already on screen.
type BubbleHandle interface {
	SetText(text string)
}

// Surface is the rendering surface a Controller drives. It is constructed
// once by the caller and handed to New; the Controller never looks up UI
// state on its own.
//
// Implementations must render text as plain text: content is never
// interpreted as markup or terminal control sequences.
type Surface interface {
	AppendBubble(b Bubble) BubbleHandle
	ScrollToBottom()

	ClearInput()
	SetInputEnabled(enabled bool)
	SetBusy(busy bool)
	Focus()
}
