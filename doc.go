// Package meridian holds the protocol-level constants shared by the
// Meridian client SDKs: network endpoints, on-chain package and object
// addresses, and the address type used across modules.
//
// The sub-packages provide the actual clients: lending, swap, oracle,
// rewards, bridge, and the composable wallet client. All of their cached
// network reads are built on the memo package.
package meridian
