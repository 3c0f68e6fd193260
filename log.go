// Logs

package rtmp

import (
	"fmt"
	"os"
	"sync"
	"time"
)

var logMutex = sync.Mutex{}

func logLine(line string) {
	tm := time.Now()
	logMutex.Lock()
	defer logMutex.Unlock()
	fmt.Printf("[%s] %s\n", tm.Format("2006-01-02 15:04:05"), line)
}

// LogWarning logs a warning line.
func LogWarning(line string) {
	logLine("[WARNING] " + line)
}

// LogInfo logs an informational line.
func LogInfo(line string) {
	logLine("[INFO] " + line)
}

// LogError logs an error.
func LogError(err error) {
	logLine("[ERROR] " + err.Error())
}

var logDebugEnabled = os.Getenv("RTMP_CLIENT_LOG_DEBUG") == "YES"

// LogDebug logs a debug line, gated by RTMP_CLIENT_LOG_DEBUG=YES.
func LogDebug(line string) {
	if logDebugEnabled {
		logLine("[DEBUG] " + line)
	}
}

// logDebugConn logs a debug line tagged with a connection identifier.
func logDebugConn(connID string, line string) {
	if logDebugEnabled {
		logLine("[DEBUG] #" + connID + " " + line)
	}
}
