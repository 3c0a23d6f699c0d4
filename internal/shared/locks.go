package shared

import "fmt"

// SaleLockKey builds the redis key guarding one in-flight sale mutation per tab.
func SaleLockKey(sessionID, terminal string) string {
	return fmt.Sprintf("ringpos:pos:%s:%s:lock", sessionID, terminal)
}

// SaleStateKey builds the redis key holding the active sale snapshot of a tab.
func SaleStateKey(sessionID, terminal string) string {
	return fmt.Sprintf("ringpos:pos:%s:%s:state", sessionID, terminal)
}
