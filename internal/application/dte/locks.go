package dte

import "sync"

// documentoLocks serializa las operaciones que mutan un mismo documento
// (envío, anulación, ingestión de respuesta SII). Dos envíos concurrentes del
// mismo documento se ejecutan uno tras otro; el segundo observa el estado que
// dejó el primero y normalmente falla con transición inválida.
//
// Los locks se crean por demanda y se liberan cuando nadie los sostiene, así
// el mapa no crece con cada documento histórico.
type documentoLocks struct {
	mu    sync.Mutex
	locks map[string]*docLock
}

type docLock struct {
	mu   sync.Mutex
	refs int
}

func newDocumentoLocks() *documentoLocks {
	return &documentoLocks{locks: make(map[string]*docLock)}
}

// lock adquiere el lock del documento y devuelve la función para soltarlo.
func (l *documentoLocks) lock(id string) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &docLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
