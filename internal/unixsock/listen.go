package unixsock

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
)

// Listen announces on the unix domain socket at path. A stale socket file
// left behind by a previous process is removed first; any other kind of
// file at path is reported as an error rather than deleted.
func Listen(path string) (*net.UnixListener, error) {
	if err := removeStale(path); err != nil {
		return nil, err
	}

	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to ResolveUnixAddr: %w", err)
	}

	listener, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to ListenUnix: %w", err)
	}
	// the socket file is unlinked when the listener is closed
	listener.SetUnlinkOnClose(true)

	return listener, nil
}

func removeStale(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if info.Mode()&fs.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove stale socket %s: %w", path, err)
	}
	return nil
}
