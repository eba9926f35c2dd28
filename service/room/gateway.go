package room

import (
	"context"
	"strings"

	"SLProject/store"
	"SLProject/tools/errs"
)

// Gateway decides whether a user may subscribe to a channel. Every join
// is checked against current membership at join time; a granted
// subscription is never re-checked afterwards, later removals surface to
// the client as a memberRemoved delta instead.
type Gateway struct {
	store store.Store
}

func NewGateway(s store.Store) *Gateway {
	return &Gateway{store: s}
}

// Authorize returns nil when userID may join channel.
//
// list:<id>  requires current membership of the list
// user:<id>  requires identity: only the user itself may join
func (g *Gateway) Authorize(ctx context.Context, userID, channel string) error {
	switch {
	case strings.HasPrefix(channel, "list:"):
		listID := strings.TrimPrefix(channel, "list:")
		list, err := store.GetList(ctx, g.store, listID)
		if err != nil {
			if errs.Code(err) == errs.NotFoundError {
				return errs.ErrNotFound.WrapMsg("list not found", "channel", channel)
			}
			return err
		}
		if !list.HasMember(userID) {
			return errs.ErrForbidden.WrapMsg("not a member of this list", "channel", channel, "user", userID)
		}
		return nil

	case strings.HasPrefix(channel, "user:"):
		if strings.TrimPrefix(channel, "user:") != userID {
			return errs.ErrForbidden.WrapMsg("not your notification channel", "channel", channel, "user", userID)
		}
		return nil

	default:
		return errs.ErrInvalidArgument.WrapMsg("unknown channel namespace", "channel", channel)
	}
}
