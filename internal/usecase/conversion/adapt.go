package conversion

import "context"

// adapter binds a converter family's raw result type to its text extractor.
type adapter[R any] struct {
	convert func(ctx context.Context, path string) (R, error)
	extract func(R) (string, bool)
}

// Adapt exposes a converter family that returns raw results of type R as a Converter.
// extract reports false when the raw result carries no text.
func Adapt[R any](
	convert func(ctx context.Context, path string) (R, error),
	extract func(R) (string, bool),
) Converter {
	return adapter[R]{convert: convert, extract: extract}
}

func (a adapter[R]) Convert(ctx context.Context, path string) (string, error) {
	raw, err := a.convert(ctx, path)
	if err != nil {
		return "", err //nolint:wrapcheck // families return path-qualified errors
	}
	text, ok := a.extract(raw)
	if !ok {
		return "", nil
	}
	return text, nil
}
