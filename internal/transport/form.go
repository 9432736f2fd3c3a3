package transport

import (
	"fmt"
	"net/url"
	"strconv"
)

// Form строит тело запроса из набора параметров.
//
// Строки и числа кодируются как есть, bool — "true"/"" (пустая строка
// означает false, так сервер понимает флаги форм), срезы строк —
// повторяющимся ключом. nil-значения пропускаются.
func Form(params map[string]any) url.Values {
	form := make(url.Values, len(params))
	for k, v := range params {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			form.Set(k, val)
		case []string:
			for _, s := range val {
				form.Add(k, s)
			}
		case bool:
			if val {
				form.Set(k, "true")
			} else {
				form.Set(k, "")
			}
		case int:
			form.Set(k, strconv.Itoa(val))
		case int64:
			form.Set(k, strconv.FormatInt(val, 10))
		case float64:
			form.Set(k, strconv.FormatFloat(val, 'f', -1, 64))
		default:
			form.Set(k, fmt.Sprint(val))
		}
	}
	return form
}
