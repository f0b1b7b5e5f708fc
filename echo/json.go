package echo

import (
	"encoding/json"
	"errors"
	"io"

	echov4 "github.com/labstack/echo/v4"
)

// strictJSONSerializer rejects request bodies that carry anything after the
// first JSON value.
type strictJSONSerializer struct {
	echov4.DefaultJSONSerializer
}

func (strictJSONSerializer) Deserialize(c echov4.Context, i interface{}) error {
	dec := json.NewDecoder(c.Request().Body)
	if err := dec.Decode(i); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
