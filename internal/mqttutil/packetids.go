package mqttutil

import (
	"sync"
)

// PIDGenerator is 16 bit id generator as
// defined by MQTT. An identifier handed
// out stays reserved until FreeID is called.
type PIDGenerator struct {
	sync.RWMutex
	index map[uint16]struct{}
	next  uint16
}

const (
	pidMin uint16 = 1
	pidMax uint16 = 65535
)

func NewPIDGenerator() *PIDGenerator {
	return &PIDGenerator{index: make(map[uint16]struct{}), next: pidMin}
}

func (pid *PIDGenerator) FreeID(id uint16) {
	pid.Lock()
	defer pid.Unlock()
	delete(pid.index, id)
}

// NextID returns the lowest free identifier starting at the
// position after the last allocation, 0 when all are in use
func (pid *PIDGenerator) NextID() uint16 {
	pid.Lock()
	defer pid.Unlock()

	if len(pid.index) >= int(pidMax) {
		return 0
	}

	for {
		id := pid.next
		if pid.next == pidMax {
			pid.next = pidMin
		} else {
			pid.next++
		}
		if _, ok := pid.index[id]; !ok {
			pid.index[id] = struct{}{}
			return id
		}
	}
}

// Reserve marks id as used, false if it is 0 or already in use
func (pid *PIDGenerator) Reserve(id uint16) bool {
	pid.Lock()
	defer pid.Unlock()

	if id == 0 {
		return false
	}
	if _, ok := pid.index[id]; ok {
		return false
	}
	pid.index[id] = struct{}{}
	return true
}

// InUse reports whether id is currently reserved
func (pid *PIDGenerator) InUse(id uint16) bool {
	pid.RLock()
	defer pid.RUnlock()
	_, ok := pid.index[id]
	return ok
}

// Reset frees every identifier
func (pid *PIDGenerator) Reset() {
	pid.Lock()
	defer pid.Unlock()
	pid.index = make(map[uint16]struct{})
	pid.next = pidMin
}
