// Package platform holds process-level helpers.
package platform

import (
	"bufio"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"strings"
	"sync"
	"time"
)

// ErrAlreadyRunning indicates another instance already holds the lock.
var ErrAlreadyRunning = errors.New("instance already running")

// ActivateMessage is what a second launch sends to the running instance.
const ActivateMessage = "activate"

const dialTimeout = 500 * time.Millisecond

// InstanceGuard holds the single-instance lock and receives messages from
// later launches.
type InstanceGuard struct {
	listener net.Listener
	address  string
	requests chan string
	once     sync.Once
	done     chan struct{}
}

// AcquireSingleInstance attempts to bind a deterministic localhost port.
// When the port is taken it signals the holder and returns ErrAlreadyRunning.
func AcquireSingleInstance(appName string) (*InstanceGuard, error) {
	address := fmt.Sprintf("127.0.0.1:%d", portFromName(appName))
	return acquire(address)
}

func acquire(address string) (*InstanceGuard, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		if signalErr := Signal(address, ActivateMessage); signalErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrAlreadyRunning, signalErr)
		}
		return nil, ErrAlreadyRunning
	}
	guard := &InstanceGuard{
		listener: listener,
		address:  listener.Addr().String(),
		requests: make(chan string, 4),
		done:     make(chan struct{}),
	}
	go guard.serve()
	return guard, nil
}

// Signal sends one line to the instance listening on address.
func Signal(address, message string) error {
	conn, err := net.DialTimeout("tcp", address, dialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()
	_ = conn.SetWriteDeadline(time.Now().Add(dialTimeout))
	_, err = fmt.Fprintln(conn, message)
	return err
}

// Requests delivers messages from later launches. It is closed on Release.
func (guard *InstanceGuard) Requests() <-chan string {
	return guard.requests
}

// Release frees the single instance lock.
func (guard *InstanceGuard) Release() error {
	if guard == nil || guard.listener == nil {
		return nil
	}
	var err error
	guard.once.Do(func() {
		err = guard.listener.Close()
		<-guard.done
	})
	return err
}

// Address returns the bound address.
func (guard *InstanceGuard) Address() string {
	if guard == nil {
		return ""
	}
	return guard.address
}

func (guard *InstanceGuard) serve() {
	defer close(guard.done)
	defer close(guard.requests)
	for {
		conn, err := guard.listener.Accept()
		if err != nil {
			return
		}
		guard.handle(conn)
	}
}

func (guard *InstanceGuard) handle(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(dialTimeout))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		return
	}
	message := strings.TrimSpace(line)
	if message == "" {
		return
	}
	select {
	case guard.requests <- message:
	default:
	}
}

func portFromName(appName string) int {
	const (
		minPort = 20000
		maxPort = 39999
	)
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(appName))
	rangeSize := maxPort - minPort + 1
	return minPort + int(hash.Sum32()%uint32(rangeSize))
}
