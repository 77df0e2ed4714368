package Constants

// WhatsappGoService is the base URL of the local WhatsApp gateway used for
// outbound patient messages.
const WhatsappGoService = "http://localhost:3000"
