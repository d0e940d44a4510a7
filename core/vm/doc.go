/*
Package vm implements the NIPS virtual machine.

The interpreter executes the bytecode of one process on a copy of a global
state until the process completes a step (STEP N/A/I/T). Nondeterministic
instructions push alternative paths which are executed in turn, so a single
step of one process can yield several successor states.

The Scheduler builds the successors of a global state from the steps of the
individual processes: it respects exclusive (atomic) processes, chains
invisible steps, retries with timeout set when the system is blocked,
completes rendezvous communication with a second process and lets the
monitor process follow every system step.
*/
package vm
