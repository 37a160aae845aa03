package model

import (
	"fmt"

	"github.com/Veraticus/transcat/internal/common"
)

// Description derives the canonical description of a transaction: the merchant
// place for card kinds and "{title}@{name}->{destination}" for transfers and
// increases.
func Description(t *Transaction) (string, error) {
	switch t.Kind {
	case KindCardBlockade, KindCardSettlement:
		if t.Card == nil {
			return "", fmt.Errorf("%w: transaction %s has no card payload", common.ErrInvalidTransaction, t.Key)
		}
		return t.Card.Place, nil
	case KindTransfer:
		if t.Transfer == nil {
			return "", fmt.Errorf("%w: transaction %s has no transfer payload", common.ErrInvalidTransaction, t.Key)
		}
		return routeDescription(t.Transfer.Title, t.Transfer.Name, t.Transfer.Destination), nil
	case KindIncrease:
		if t.Increase == nil {
			return "", fmt.Errorf("%w: transaction %s has no increase payload", common.ErrInvalidTransaction, t.Key)
		}
		return routeDescription(t.Increase.Title, t.Increase.Name, t.Increase.Destination), nil
	default:
		return "", fmt.Errorf("transaction %s: %w: %q", t.Key, common.ErrUnsupportedKind, t.Kind)
	}
}

func routeDescription(title, name, destination string) string {
	return title + "@" + name + "->" + destination
}
