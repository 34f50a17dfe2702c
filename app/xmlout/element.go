package xmlout

// Content is the body of an Element: Text, CData or Children.
type Content interface {
	writeTo(e *Emitter) error
}

// Element is one node of a document tree.
type Element struct {
	Name    string
	Content Content
}

// Text is escaped character data.
type Text string

// CData is written verbatim inside a CDATA section.
type CData string

// Children is a sequence of nested elements.
type Children []Element

func (t Text) writeTo(e *Emitter) error {
	return e.WriteText(string(t))
}

func (c CData) writeTo(e *Emitter) error {
	return e.WriteCData(string(c))
}

func (c Children) writeTo(e *Emitter) error {
	for _, child := range c {
		if err := e.Tag(child.Name, child.Content); err != nil {
			return err
		}
	}
	return nil
}

// Leaf returns an element holding escaped text.
func Leaf(name, text string) Element {
	return Element{Name: name, Content: Text(text)}
}

// Node returns an element holding the given children.
func Node(name string, children ...Element) Element {
	return Element{Name: name, Content: Children(children)}
}
