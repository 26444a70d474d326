// Package bytecode provides a stack-based virtual machine for executing
// hoisted lambda programs.
//
// The bytecode format is designed for:
//   - Compact representation (1-3 bytes per instruction)
//   - Fast decoding (fixed-width opcodes, simple operand formats)
//   - Easy serialization (modules are CBOR-encoded for the compile cache)
//
// # Architecture Overview
//
//   - Opcodes: a small set of stack instructions covering integer
//     arithmetic, local slots, tuple allocation and projection, and
//     indirect calls
//
//   - Chunk: the compiled code of one top-level function, with its integer
//     constant pool and slot layout. A Module holds every chunk of a
//     program plus the index of main.
//
//   - Compiler: turns a verified *compiler.Program into a Module. Each
//     parameter and each statement result gets its own local slot.
//
//   - VM: interprets a Module. Closures are tuples whose slot 0 holds a
//     function value, so CALL only ever sees first-order code pointers.
//
// Every statement leaves the operand stack empty, which keeps the VM's
// stack bounded by the widest tuple or call in the program.
package bytecode
