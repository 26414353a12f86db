package service

import "sync"

// productLocks hands out one mutex per product id. Admissions for the same
// product serialize on it; different products never share a lock.
type productLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newProductLocks() *productLocks {
	return &productLocks{locks: make(map[string]*sync.Mutex)}
}

func (p *productLocks) get(productID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.locks[productID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[productID] = l
	}
	return l
}
