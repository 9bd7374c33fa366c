package finam

import (
	"context"

	"finflow/models"
)

// Lookup finds the first directory entry with the given code. A market
// other than MarketUnset narrows the match to that market section.
func (c *Client) Lookup(ctx context.Context, code string, market models.Market) (models.Instrument, error) {
	instruments, err := c.Directory(ctx)
	if err != nil {
		return models.Instrument{}, err
	}
	for _, inst := range instruments {
		if inst.Code != code {
			continue
		}
		if market != models.MarketUnset && inst.Market != market {
			continue
		}
		return inst, nil
	}
	return models.Instrument{}, &NotFoundError{Code: code, Market: market}
}

// MarketCodes lists the contract codes of a market section in directory order.
func (c *Client) MarketCodes(ctx context.Context, market models.Market) ([]string, error) {
	instruments, err := c.Directory(ctx)
	if err != nil {
		return nil, err
	}
	var codes []string
	for _, inst := range instruments {
		if inst.Market == market {
			codes = append(codes, inst.Code)
		}
	}
	return codes, nil
}
