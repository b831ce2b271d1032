package coinapi

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// decode parses data into T after check has confirmed that every declared
// key is present and non-null. Missing fields fail the decode instead of
// defaulting to zero values.
func decode[T any](data []byte, check func(gjson.Result) error) (T, error) {
	var out T

	if !gjson.ValidBytes(data) {
		return out, errors.New("body is not valid JSON")
	}
	if err := check(gjson.ParseBytes(data)); err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

func requireKeys(obj gjson.Result, where string, keys []string) error {
	if !obj.IsObject() {
		return fmt.Errorf("%s: expected object, got %s", where, obj.Type)
	}
	for _, k := range keys {
		v := obj.Get(k)
		if !v.Exists() {
			return fmt.Errorf("%s: missing key %q", where, k)
		}
		if v.Type == gjson.Null {
			return fmt.Errorf("%s: key %q is null", where, k)
		}
	}
	return nil
}

func requireList(list gjson.Result, where string, keys []string) error {
	if !list.IsArray() {
		return fmt.Errorf("%s: expected array, got %s", where, list.Type)
	}
	for i, item := range list.Array() {
		if err := requireKeys(item, fmt.Sprintf("%s[%d]", where, i), keys); err != nil {
			return err
		}
	}
	return nil
}

func checkCurrentRates(doc gjson.Result) error {
	if err := requireKeys(doc, "current rates", currentRatesKeys); err != nil {
		return err
	}
	return requireList(doc.Get("rates"), "rates", rateKeys)
}

func checkPeriods(doc gjson.Result) error {
	return requireList(doc, "periods", periodKeys)
}

func checkExchanges(doc gjson.Result) error {
	return requireList(doc, "exchanges", exchangeKeys)
}

func checkIcons(doc gjson.Result) error {
	return requireList(doc, "icons", iconKeys)
}
