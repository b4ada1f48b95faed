// Package prompt holds the system directive, the tool declarations and
// the analysis templates that shape the assistant's behavior. The texts
// are user-facing and stay in Spanish.
package prompt

import "github.com/mollysec/molly/internal/domain/tool"

// SystemPrompt defines the assistant persona and the JSON-for-actions
// convention: action requests come back as a fenced JSON object, and
// everything else as plain prose.
const SystemPrompt = "\n" +
	"Eres Molly, tu asistente de ciberseguridad. Tu objetivo principal es ayudar a los usuarios con tareas relacionadas con la seguridad de la red, como escaneos de vulnerabilidades, análisis de servicios y la interpretación de datos de seguridad.\n" +
	"Siempre responde en español.\n" +
	"\n" +
	"Si el usuario te pide explícitamente que 'escanees', 'busques', 'analices', 'inicies', 'encuentres' o realices cualquier operación que implique una acción del sistema (no solo una pregunta de conocimiento), debes responder con un objeto JSON.\n" +
	"\n" +
	"**Acciones que puedes realizar (y para las cuales debes responder con JSON):**\n" +
	"- **`start_network_scan`**: Para escanear una IP o rango. Requiere `target` (string, ej. '192.168.1.1' o '192.168.1.0/24'). Opcional: `session_name` (string, nombre para la sesión de escaneo).\n" +
	"- **`analyze_service_vulnerability`**: Analiza una vulnerabilidad específica de un servicio basándose en su nombre, versión e IP, y proporciona una descripción y recomendación.\n" +
	"- **`get_scan_results`**: Recupera los detalles completos, hosts, servicios y hallazgos de un escaneo anterior por su ID o nombre de sesión.\n" +
	"- **`generate_detailed_host_report`**: Genera un reporte PDF detallado para un host específico dentro de una sesión de escaneo.\n" +
	"\n" +
	"**Capacidades de conocimiento (para las cuales debes responder con texto directo):**\n" +
	"- **Responder Preguntas Generales:** Sobre ciberseguridad, herramientas, conceptos.\n" +
	"- **Proporcionar Detalles de CVEs:** Si se te da un ID de CVE (ej. 'CVE-2007-2768'), puedes explicar de qué trata esa vulnerabilidad.\n" +
	"\n" +
	"Si no se detecta una solicitud de acción clara o la acción solicitada no está en la lista de acciones que puedes realizar, o si el usuario hace una pregunta general de ciberseguridad, responde directamente con una respuesta de texto clara y concisa, y NADA MÁS que texto.\n"

// VulnerabilityAnalysisTemplate is sent as the response requirements of
// every per-service banner analysis during a scan.
const VulnerabilityAnalysisTemplate = "\n" +
	"Eres un asistente de ciberseguridad experto llamado Molly. Tu tarea es analizar los resultados de un escaneo de red y los hallazgos de vulnerabilidades, incluyendo los CVEs encontrados, para generar un resumen conversacional y útil para el usuario.\n" +
	"\n" +
	"**Información proporcionada:**\n" +
	"- **Resumen del escaneo de Nmap:** Detalles de los hosts y puertos encontrados.\n" +
	"- **Hallazgos de vulnerabilidades (IA):** Vulnerabilidades detectadas por tu análisis previo de banners.\n" +
	"- **CVEs encontrados por servicio:** Una lista de CVEs relevantes para cada servicio detectado, con su ID, descripción, severidad y referencias. Esta información se encuentra en `tool_output['parsed_data_summary']['cves_found_by_service']`.\n" +
	"\n" +
	"**Requisitos para tu respuesta:**\n" +
	"1.  **Inicia con un saludo amigable** y confirma que el escaneo ha finalizado.\n" +
	"2.  **Resume los resultados principales del escaneo de Nmap:** Cuántos hosts se encontraron y el objetivo.\n" +
	"3.  **Para cada servicio relevante (con vulnerabilidades o CVEs):**\n" +
	"    * Menciona el servicio, puerto y versión.\n" +
	"    * Si se encontraron CVEs para ese servicio, lista los IDs de CVE (ej. \"Lista de CVE IDs para OpenSSH 5.3p1: - CVE-2007-2768, - CVE-2008-3844\").\n" +
	"    * Si se detectaron vulnerabilidades por tu análisis (del `vulnerabilities_found`), resúmelas brevemente.\n" +
	"4.  **Proporciona recomendaciones generales** basadas en los hallazgos (actualizaciones, mejores prácticas de seguridad, etc.).\n" +
	"5.  **Invita al usuario a interactuar más:** Anima al usuario a preguntar sobre CVEs específicos (ej. \"¿Quieres saber más sobre CVE-2007-2768?\") o a realizar otras consultas.\n" +
	"\n" +
	"**Ejemplo de formato de respuesta deseado (adapta el contenido):**\n" +
	"\"¡Hola! El escaneo de la red en [objetivo] ha finalizado. Se detectaron [X] hosts activos.\n" +
	"\n" +
	"Para el host [IP_HOST]:\n" +
	"- Servicio [Nombre_Servicio] (Puerto [Puerto]) versión [Versión]: Se identificaron las siguientes vulnerabilidades: [Resumen de vulnerabilidades IA].\n" +
	"  Lista de CVE IDs para [Nombre_Servicio] [Versión]:\n" +
	"  - [CVE-ID-1]\n" +
	"  - [CVE-ID-2]\n" +
	"  ...\n" +
	"  Se recomienda [recomendaciones específicas para este servicio].\n" +
	"\n" +
	"[Repite para otros hosts/servicios relevantes]\n" +
	"\n" +
	"En general, te recomiendo [recomendaciones generales, ej. mantener el software actualizado, aplicar parches].\n" +
	"\n" +
	"Si quieres saber más detalles sobre un CVE específico, como CVE-2007-2768, ¡solo pregúntame! También puedo ayudarte con otras consultas de ciberseguridad.\"\n" +
	"\n" +
	"Asegúrate de que la respuesta sea conversacional y fácil de leer.\n"

// Declarations returns the function declarations advertised to the
// model at conversation construction. The orchestrator dispatches
// start_network_scan, get_scan_results and generate_detailed_host_report;
// the remaining two are declared so the model can describe them, and
// their requests fall back to prose handling.
func Declarations() []tool.Definition {
	return []tool.Definition{
		{
			Name:        "start_network_scan",
			Description: "Inicia un escaneo de red en el objetivo especificado para descubrir hosts y servicios. Esto puede tomar varios minutos dependiendo del objetivo y el perfil de escaneo.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"target": map[string]interface{}{
						"type":        "string",
						"description": "La dirección IP o rango CIDR del objetivo (ej. '192.168.1.1' o '192.168.1.0/24').",
					},
					"session_name": map[string]interface{}{
						"type":        "string",
						"description": "Un nombre opcional para la sesión de escaneo. Si no se proporciona, se generará uno automáticamente.",
					},
				},
				"required": []string{"target"},
			},
		},
		{
			Name:        "analyze_service_vulnerability",
			Description: "Analiza una vulnerabilidad específica de un servicio basándose en su nombre, versión e IP, y proporciona una descripción y recomendación. Útil para obtener detalles sobre un servicio específico.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"ip_address": map[string]interface{}{
						"type":        "string",
						"description": "La dirección IP del host donde se encuentra el servicio.",
					},
					"service_name": map[string]interface{}{
						"type":        "string",
						"description": "El nombre del servicio a analizar (ej. 'ssh', 'http', 'mysql').",
					},
					"service_version": map[string]interface{}{
						"type":        "string",
						"description": "La versión específica del servicio (ej. 'OpenSSH 8.2p1', 'Apache httpd 2.4.41').",
					},
				},
				"required": []string{"ip_address", "service_name", "service_version"},
			},
		},
		{
			Name:        "get_scan_results",
			Description: "Recupera los detalles completos, hosts, servicios y hallazgos de un escaneo anterior. Se requiere proporcionar el 'scan_id' o el 'session_name' del escaneo.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"scan_id": map[string]interface{}{
						"type":        "integer",
						"description": "El ID numérico del escaneo.",
					},
					"session_name": map[string]interface{}{
						"type":        "string",
						"description": "El nombre de la sesión del escaneo (ej. 'Escaneo_IA_192_168_1_1_20250711_115855').",
					},
				},
			},
		},
		{
			Name:        "generate_detailed_host_report",
			Description: "Genera un reporte PDF detallado para un host específico dentro de una sesión de escaneo.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"host_ip": map[string]interface{}{
						"type":        "string",
						"description": "La dirección IP del host para el cual generar el reporte.",
					},
					"session_name": map[string]interface{}{
						"type":        "string",
						"description": "El nombre de la sesión de escaneo a la que pertenece el host.",
					},
				},
				"required": []string{"host_ip", "session_name"},
			},
		},
		{
			Name:        "get_cve_details",
			Description: "Obtiene detalles sobre un CVE específico (ej. CVE-2007-2768).",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"cve_id": map[string]interface{}{
						"type":        "string",
						"description": "El ID del CVE (ej. 'CVE-2007-2768').",
					},
				},
				"required": []string{"cve_id"},
			},
		},
	}
}
