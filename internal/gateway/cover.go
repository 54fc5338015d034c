package gateway

import (
	"context"
	"fmt"
	"strconv"
)

func (c *Client) refreshCoverDevices(ctx context.Context, matched []map[string]any, notify bool) error {
	local := map[string]CoverDevice{}
	refreshed := map[string]struct{}{}

	rows, err := c.readDetails(ctx, matched)
	if err != nil {
		return err
	}

	for _, row := range rows {
		device, err := decodeCoverRow(row)
		if err != nil {
			c.logError("failed to decode cover device", "error", err)
			continue
		}
		if device == nil {
			continue
		}

		local[device.UniqueID] = *device
		refreshed[device.UniqueID] = struct{}{}
	}

	c.stateMu.Lock()
	c.coverDevices = local
	c.stateMu.Unlock()

	c.logDebug("refreshed cover devices", "count", len(local))

	if notify {
		c.notifyListeners(&c.coverListeners, refreshed)
	}

	return nil
}

// decodeCoverRow decodes one roller shutter row. Disabled endpoints, marked
// by a button mode of zero, return a nil device.
func decodeCoverRow(row map[string]any) (*CoverDevice, error) {
	id, ok := uniqueID(row)
	if !ok {
		return nil, nil
	}

	if mode, ok := rawInt(nested(row, blockButton), "Mode"); ok && mode == 0 {
		return nil, nil
	}

	level := nested(row, blockLevel)
	position, ok := rawInt(level, "CurrentLevel")
	if !ok {
		return nil, fmt.Errorf("cover %s: missing sLevelS.CurrentLevel", id)
	}

	// MoveToLevel_f packs the commanded level into the first hex byte; the
	// trailing FFFF is a transition time placeholder.
	var isOpening, isClosing *bool
	if move, ok := rawString(level, "MoveToLevel_f"); ok && len(move) >= 2 {
		target, err := strconv.ParseInt(move[:2], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("cover %s: malformed MoveToLevel_f %q: %w", id, move, err)
		}
		opening := position < int(target)
		closing := position > int(target)
		isOpening = &opening
		isClosing = &closing
	}

	data, _ := rowData(row)
	model := modelIdentifier(row)

	return &CoverDevice{
		Available:            available(row),
		Name:                 deviceName(row, "Unknown"),
		UniqueID:             id,
		Manufacturer:         manufacturer(row),
		Model:                model,
		SWVersion:            firmwareVersion(row),
		CurrentCoverPosition: position,
		IsOpening:            isOpening,
		IsClosing:            isClosing,
		IsClosed:             position == 0,
		SupportedFeatures:    SupportOpen | SupportClose | SupportSetPosition,
		DeviceClass:          coverDeviceClass[model],
		Data:                 data,
	}, nil
}
