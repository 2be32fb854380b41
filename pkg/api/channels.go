package api

import "fmt"

// ChannelSet is an ordered sequence of uniquely named arrays. Names and arrays
// are always kept in lockstep.
type ChannelSet struct {
	names  []string
	arrays []*Array
}

func NewChannelSet() *ChannelSet {
	return &ChannelSet{}
}

func (c *ChannelSet) Len() int {
	return len(c.names)
}

// Names returns a copy of the column names.
func (c *ChannelSet) Names() []string {
	return append([]string(nil), c.names...)
}

// Arrays returns the arrays in column order.
func (c *ChannelSet) Arrays() []*Array {
	return append([]*Array(nil), c.arrays...)
}

// Index returns the position of name, or -1.
func (c *ChannelSet) Index(name string) int {
	for i, n := range c.names {
		if n == name {
			return i
		}
	}
	return -1
}

func (c *ChannelSet) Has(name string) bool {
	return c.Index(name) >= 0
}

// Get returns the array stored under name.
func (c *ChannelSet) Get(name string) (*Array, bool) {
	i := c.Index(name)
	if i < 0 {
		return nil, false
	}
	return c.arrays[i], true
}

// Append adds a channel at the end.
func (c *ChannelSet) Append(name string, a *Array) error {
	return c.Insert(len(c.names), name, a)
}

// Insert adds a channel at index, shifting later channels right.
func (c *ChannelSet) Insert(index int, name string, a *Array) error {
	if c.Has(name) {
		return fmt.Errorf("channel %q already present", name)
	}
	if index < 0 || index > len(c.names) {
		return fmt.Errorf("index %d out of range for %d channels", index, len(c.names))
	}
	c.names = append(c.names, "")
	c.arrays = append(c.arrays, nil)
	copy(c.names[index+1:], c.names[index:])
	copy(c.arrays[index+1:], c.arrays[index:])
	c.names[index] = name
	c.arrays[index] = a
	return nil
}

// Remove drops name and returns its array.
func (c *ChannelSet) Remove(name string) (*Array, bool) {
	i := c.Index(name)
	if i < 0 {
		return nil, false
	}
	a := c.arrays[i]
	c.names = append(c.names[:i], c.names[i+1:]...)
	c.arrays = append(c.arrays[:i], c.arrays[i+1:]...)
	return a, true
}

// Rename renames the column in place. It is a no-op when from is absent
// and an error when to is already taken by another column.
func (c *ChannelSet) Rename(from, to string) (bool, error) {
	i := c.Index(from)
	if i < 0 {
		return false, nil
	}
	if from == to {
		return true, nil
	}
	if c.Has(to) {
		return false, fmt.Errorf("cannot rename %q to %q: name in use", from, to)
	}
	c.names[i] = to
	return true, nil
}

// MoveTo moves name to index. It is a no-op when name is absent.
func (c *ChannelSet) MoveTo(name string, index int) {
	a, ok := c.Remove(name)
	if !ok {
		return
	}
	if index > len(c.names) {
		index = len(c.names)
	}
	_ = c.Insert(index, name, a)
}

// Length is the event axis length shared by the channels; 0 when empty.
func (c *ChannelSet) Length() int {
	for _, a := range c.arrays {
		if a != nil && a.Len() > 0 {
			return a.Len()
		}
	}
	return 0
}
