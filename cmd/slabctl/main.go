// Command slabctl inspects slabkit type schemas and runs workloads against a registry.
package main

func main() {
	execute()
}
