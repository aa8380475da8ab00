package nats

import (
	"encoding/json"
	"fmt"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

const turnEventVersion = 1

type turnEvent struct {
	Version int         `json:"version"`
	Turn    domain.Turn `json:"turn"`
}

func encodeTurnEvent(turn domain.Turn) ([]byte, error) {
	data, err := json.Marshal(turnEvent{Version: turnEventVersion, Turn: turn})
	if err != nil {
		return nil, fmt.Errorf("marshal turn event: %w", err)
	}
	return data, nil
}

func decodeTurnEvent(data []byte) (domain.Turn, error) {
	var event turnEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.Turn{}, domain.WrapError(domain.ErrInvalidInput, "decode turn event", err)
	}
	if event.Version != turnEventVersion {
		return domain.Turn{}, domain.WrapError(domain.ErrInvalidInput, "decode turn event", fmt.Errorf("unsupported version %d", event.Version))
	}
	return event.Turn, nil
}
