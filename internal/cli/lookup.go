package cli

import (
	"fmt"
	"strings"

	"github.com/julianstephens/mydesk/internal/models"
)

// ResolveEvent finds an event by id or unique id prefix.
func (c *Context) ResolveEvent(ref string) (models.Event, error) {
	ref = strings.TrimSpace(ref)
	var found []models.Event
	for _, ev := range c.Desk.Store().Events() {
		if ev.ID == ref {
			return ev, nil
		}
		if ref != "" && strings.HasPrefix(ev.ID, ref) {
			found = append(found, ev)
		}
	}
	switch len(found) {
	case 0:
		return models.Event{}, fmt.Errorf("no event matches %q", ref)
	case 1:
		return found[0], nil
	}
	return models.Event{}, fmt.Errorf("%q matches %d events, use a longer id", ref, len(found))
}

// ResolveType finds an event type by id, unique id prefix or name.
func (c *Context) ResolveType(ref string) (models.EventType, error) {
	ref = strings.TrimSpace(ref)
	var found []models.EventType
	for _, et := range c.Desk.Store().Types() {
		if et.ID == ref {
			return et, nil
		}
		if ref != "" && (strings.HasPrefix(et.ID, ref) || strings.EqualFold(et.Name, ref)) {
			found = append(found, et)
		}
	}
	switch len(found) {
	case 0:
		return models.EventType{}, fmt.Errorf("no event type matches %q", ref)
	case 1:
		return found[0], nil
	}
	return models.EventType{}, fmt.Errorf("%q matches %d event types", ref, len(found))
}

// TypeName returns the name of the type with the given id, or "".
func (c *Context) TypeName(id string) string {
	if id == "" {
		return ""
	}
	if et, ok := c.Desk.Store().Type(id); ok {
		return et.Name
	}
	return ""
}
