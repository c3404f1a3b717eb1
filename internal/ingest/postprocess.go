package ingest

import "context"

// PostProcessor: хук между склейкой и сжатием (генерация превью,
// перекодирование). Может заменить байты и MIME.
type PostProcessor interface {
	Process(ctx context.Context, fileName, mime string, data []byte) ([]byte, string, error)
}

// Noop пропускает артефакт без изменений.
type Noop struct{}

func (Noop) Process(_ context.Context, _ string, mime string, data []byte) ([]byte, string, error) {
	return data, mime, nil
}

// PostFunc: функция как PostProcessor.
type PostFunc func(ctx context.Context, fileName, mime string, data []byte) ([]byte, string, error)

func (f PostFunc) Process(ctx context.Context, fileName, mime string, data []byte) ([]byte, string, error) {
	return f(ctx, fileName, mime, data)
}
