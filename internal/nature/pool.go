package nature

import (
	"image"
	"sync"
)

// bufferPool recycles working RGBA buffers keyed by their bounds, so repeated
// verifications of same-sized photos do not churn the GC.
type bufferPool struct {
	mu    sync.RWMutex
	pools map[image.Rectangle]*sync.Pool
}

var workingBuffers = &bufferPool{pools: make(map[image.Rectangle]*sync.Pool)}

func (p *bufferPool) get(rect image.Rectangle) *image.RGBA {
	p.mu.RLock()
	pool, ok := p.pools[rect]
	p.mu.RUnlock()

	if !ok {
		p.mu.Lock()
		pool, ok = p.pools[rect]
		if !ok {
			pool = &sync.Pool{
				New: func() any { return image.NewRGBA(rect) },
			}
			p.pools[rect] = pool
		}
		p.mu.Unlock()
	}
	return pool.Get().(*image.RGBA)
}

func (p *bufferPool) put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.mu.RLock()
	pool, ok := p.pools[img.Rect]
	p.mu.RUnlock()
	if ok {
		pool.Put(img)
	}
}
