package gateway

import "context"

// refreshGatewayDevice updates the hub record. Unlike the device categories
// there is at most one hub; an empty match leaves the previous record in
// place.
func (c *Client) refreshGatewayDevice(ctx context.Context, matched []map[string]any, _ bool) error {
	rows, err := c.readDetails(ctx, matched)
	if err != nil {
		return err
	}

	for _, row := range rows {
		gw := nested(row, blockGateway)

		mac, ok := rawString(gw, "NetworkLANMAC")
		if !ok || mac == "" {
			continue
		}

		model, _ := rawString(gw, "ModelIdentifier")
		name := model
		if name == "" {
			name = "Salus Gateway"
		}

		data, _ := rowData(row)
		firmware, _ := rawString(nested(row, blockOTA), "OTAFirmwareVersion_d")

		c.stateMu.Lock()
		c.gatewayDevice = &GatewayDevice{
			Name:         name,
			UniqueID:     mac,
			Manufacturer: manufacturer(row),
			Model:        model,
			SWVersion:    firmware,
			Data:         data,
		}
		c.stateMu.Unlock()
	}

	c.logDebug("refreshed gateway device")

	return nil
}
