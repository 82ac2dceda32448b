/*
Package core implements the oracle node core: the ledger of committed
transactions and the state they produce.

Every transaction carries one oracle command, it's executed against a fresh
write set over the persistent store and the write set is only persisted
(together with the new height and the execution result) if the command
succeeds. Committed transactions can't be replayed.
*/
package core
