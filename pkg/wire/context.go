package wire

import "fmt"

// Context parameterizes deserialization. Output states and commands name
// the contract or command class that defines their payload; those names
// must resolve against the attachments supplied by the embedding system
// before the component is accepted. All other component kinds decode in
// the default context.
//
// Contexts are immutable after construction and safe for concurrent use.
type Context struct {
	classes map[string]struct{}
}

// DefaultContext resolves no attachment classes. Decoding an output
// state or command under it fails, which is the correct behaviour for a
// record whose attachments were not supplied.
func DefaultContext() *Context {
	return &Context{}
}

// NewContext builds a context resolving the given attachment class names.
func NewContext(classNames ...string) *Context {
	classes := make(map[string]struct{}, len(classNames))
	for _, name := range classNames {
		classes[name] = struct{}{}
	}
	return &Context{classes: classes}
}

// WithClasses returns a new context additionally resolving the given
// class names. The receiver is unchanged.
func (c *Context) WithClasses(classNames ...string) *Context {
	classes := make(map[string]struct{}, len(c.classes)+len(classNames))
	for name := range c.classes {
		classes[name] = struct{}{}
	}
	for _, name := range classNames {
		classes[name] = struct{}{}
	}
	return &Context{classes: classes}
}

// Resolves reports whether the context can resolve the given class name.
func (c *Context) Resolves(className string) bool {
	_, ok := c.classes[className]
	return ok
}

// resolveClass is the decode-time check shared by the attachment-aware
// component kinds.
func (c *Context) resolveClass(kind, className string) error {
	if c == nil || !c.Resolves(className) {
		return fmt.Errorf("no attachment resolves %s class %q", kind, className)
	}
	return nil
}
